// Package alignment implements the faction conversion math for the
// three-way alignment minigame.
package alignment

import (
	"sort"

	"github.com/distortia/tavern/internal/random"
)

// Factions lists the three alignment factions.
var Factions = []string{"Ashen Pact", "Concord", "Veilbound"}

// baseChance is the conversion probability against an unrated opponent.
const baseChance = 0.5

// minChance is the floor below which opposition cannot push a conversion
// attempt. Even an entrenched faction can be flipped.
const minChance = 0.05

// ConversionChance returns the probability of converting a target away
// from a faction with the given opposing rating. The chance starts at 0.5
// and shrinks as the opposing rating grows; negative ratings count as
// zero. The result is always within [minChance, baseChance].
func ConversionChance(opposingRating int) float64 {
	if opposingRating < 0 {
		opposingRating = 0
	}
	chance := baseChance * 10 / float64(10+opposingRating)
	if chance < minChance {
		return minChance
	}
	return chance
}

// Converts draws once from the stream and reports whether a conversion
// attempt against the given opposing rating succeeds.
func Converts(stream *random.Stream, opposingRating int) bool {
	return stream.Float64() < ConversionChance(opposingRating)
}

// Resolve returns the winning faction for a score map. The highest score
// wins; any tie, including a three-way tie, breaks to the lexicographically
// smallest faction name so the result never depends on map iteration order.
// An empty score map returns the empty string.
func Resolve(scores map[string]int) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	winner := ""
	best := 0
	for _, name := range names {
		if winner == "" || scores[name] > best {
			winner = name
			best = scores[name]
		}
	}
	return winner
}
