// Package dice implements ability-score rolling for traveler characters.
package dice

import (
	"errors"
	"strconv"

	"github.com/distortia/tavern/internal/random"
)

// Attribute names one of the six ability scores.
type Attribute string

// Attributes are always rolled and listed in this order. The order is part
// of the determinism contract: with one shared stream, reordering would
// change which draws land on which attribute.
const (
	Strength     Attribute = "strength"
	Dexterity    Attribute = "dexterity"
	Constitution Attribute = "constitution"
	Intelligence Attribute = "intelligence"
	Wisdom       Attribute = "wisdom"
	Charisma     Attribute = "charisma"
)

// Order lists the six attributes in roll order.
var Order = []Attribute{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// ErrScoresLocked indicates the score set has been frozen.
var ErrScoresLocked = errors.New("ability scores are locked")

// ErrNoRerollsLeft indicates the score set's reroll cap is exhausted.
var ErrNoRerollsLeft = errors.New("no ability rerolls remaining")

// Score holds one rolled ability score and its derived modifier.
type Score struct {
	Value    int
	Modifier int
}

// ScoreSet maps each attribute to its rolled score.
type ScoreSet map[Attribute]Score

// RollScore rolls four six-sided dice on the stream, drops the lowest, and
// sums the remaining three. Results fall in [3, 18], skewed toward 12-13.
func RollScore(stream *random.Stream) int {
	lowest := 7
	total := 0
	for i := 0; i < 4; i++ {
		die := 1 + stream.Intn(6)
		total += die
		if die < lowest {
			lowest = die
		}
	}
	return total - lowest
}

// RollScoreSet rolls all six attributes in Order from one shared stream and
// snapshots the derived modifier for each.
func RollScoreSet(stream *random.Stream) ScoreSet {
	set := make(ScoreSet, len(Order))
	for _, attr := range Order {
		value := RollScore(stream)
		set[attr] = Score{Value: value, Modifier: Modifier(value)}
	}
	return set
}

// Modifier derives the ability modifier for a score. It is defined for all
// integers, including scores outside the usual 3-18 range, and never clamps.
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		// Integer division truncates toward zero; modifiers floor instead.
		return -((-diff + 1) / 2)
	}
	return diff / 2
}

// abilityRerollCap is the number of full-array rerolls allowed before the
// set must be locked.
const abilityRerollCap = 2

// AbilityState tracks one user's ability scores together with the
// whole-set reroll counter and lock. Unlike profile fields, rerolls here
// replace the entire array and the single lock freezes all six scores (and
// their modifier snapshots) at once.
type AbilityState struct {
	OwnerID          string
	SeedText         string
	Scores           ScoreSet
	RerollsRemaining int
	RollCount        int
	Locked           bool
}

// NewAbilityState rolls an initial score set for the owner from the seed
// text, leaving both rerolls available.
func NewAbilityState(ownerID, seedText string) *AbilityState {
	stream := random.New(random.DeriveSeed(seedText, "abilities", "draw:0"))
	return &AbilityState{
		OwnerID:          ownerID,
		SeedText:         seedText,
		Scores:           RollScoreSet(stream),
		RerollsRemaining: abilityRerollCap,
	}
}

// Reroll replaces the whole score set with a freshly derived roll. The
// disambiguator advances with every roll, so repeated rerolls never repeat
// the same array.
func (a *AbilityState) Reroll() (ScoreSet, error) {
	if a.Locked {
		return nil, ErrScoresLocked
	}
	if a.RerollsRemaining <= 0 {
		return nil, ErrNoRerollsLeft
	}
	a.RollCount++
	a.RerollsRemaining--
	stream := random.New(random.DeriveSeed(a.SeedText, "abilities", disambiguator(a.RollCount)))
	a.Scores = RollScoreSet(stream)
	return a.Scores, nil
}

// Lock freezes the score set permanently. Idempotent.
func (a *AbilityState) Lock() {
	a.Locked = true
}

func disambiguator(count int) string {
	return "draw:" + strconv.Itoa(count)
}
