package character

import (
	"strconv"
	"time"

	"github.com/distortia/tavern/internal/character/tables"
	"github.com/distortia/tavern/internal/random"
)

// fieldRerollBudget is the number of rerolls each field starts with. A
// successful reroll spends the budget and locks the field in one step;
// only an administrative grant restores it.
const fieldRerollBudget = 1

// Generate builds a profile from seed text, one table set, and optional
// per-field overrides.
//
// Every field draws from its own stream derived from (seedText, field,
// draw sequence), so the same seed text always reproduces the same profile
// and overriding one field never shifts the draws of any other. Overridden
// fields consume no draws at all. Dependent fields (conditional pools) read
// the value of their conditioning field, which the fixed table order
// guarantees has already been decided.
//
// The returned fallbacks list names any fields whose conditioning value had
// no table entries and fell back to the default category; callers may log
// these but generation itself never fails on an unknown category.
func Generate(seedText string, set tables.Set, overrides map[string]string, now time.Time) (Profile, []string) {
	profile := Profile{
		Kind:             set.Kind,
		SeedText:         seedText,
		Fields:           make(map[string]string, len(set.Fields)),
		Locks:            make(map[string]bool, len(set.Fields)),
		RerollsRemaining: make(map[string]int, len(set.Fields)),
		RollCounts:       make(map[string]int, len(set.Fields)),
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}

	var fallbacks []string
	for _, field := range set.Fields {
		profile.Locks[field.Name] = false
		profile.RerollsRemaining[field.Name] = fieldRerollBudget

		if value, ok := overrides[field.Name]; ok {
			profile.Fields[field.Name] = value
			continue
		}

		value, fellBack := drawField(profile, field, 0)
		profile.Fields[field.Name] = value
		if fellBack {
			fallbacks = append(fallbacks, field.Name)
		}
	}
	return profile, fallbacks
}

// drawField draws one value for the field at the given draw sequence
// number. Sequence 0 is the initial generation draw; rerolls and cascades
// advance the sequence so repeated draws are never degenerate repeats.
func drawField(profile Profile, field tables.Field, sequence int) (string, bool) {
	seed := random.DeriveSeed(profile.SeedText, field.Name, "draw:"+strconv.Itoa(sequence))
	stream := random.New(seed)
	category := profile.Fields[field.DependsOn]
	return field.Draw(stream, category)
}
