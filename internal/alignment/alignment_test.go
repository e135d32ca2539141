package alignment

import (
	"testing"

	"github.com/distortia/tavern/internal/random"
)

func TestConversionChanceShrinksWithOpposition(t *testing.T) {
	if got := ConversionChance(0); got != 0.5 {
		t.Fatalf("ConversionChance(0) = %v, want 0.5", got)
	}
	if got := ConversionChance(10); got != 0.25 {
		t.Fatalf("ConversionChance(10) = %v, want 0.25", got)
	}
	prev := ConversionChance(0)
	for rating := 1; rating <= 200; rating++ {
		chance := ConversionChance(rating)
		if chance > prev {
			t.Fatalf("chance rose from %v to %v at rating %d", prev, chance, rating)
		}
		if chance < 0.05 {
			t.Fatalf("chance %v below floor at rating %d", chance, rating)
		}
		prev = chance
	}
}

func TestConversionChanceNegativeRating(t *testing.T) {
	if got, want := ConversionChance(-5), ConversionChance(0); got != want {
		t.Fatalf("ConversionChance(-5) = %v, want %v", got, want)
	}
}

func TestConvertsIsDeterministic(t *testing.T) {
	seed := random.DeriveSeed("user123", "alignment")
	first := Converts(random.New(seed), 12)
	second := Converts(random.New(seed), 12)
	if first != second {
		t.Fatal("same seed produced different conversion outcomes")
	}
}

func TestConvertsRespectsChance(t *testing.T) {
	stream := random.New(random.DeriveSeed("conversion", "rate"))
	const trials = 100000
	wins := 0
	for i := 0; i < trials; i++ {
		if Converts(stream, 10) {
			wins++
		}
	}
	rate := float64(wins) / trials
	if rate < 0.23 || rate > 0.27 {
		t.Fatalf("conversion rate = %.3f, want ~0.25", rate)
	}
}

func TestResolvePicksHighest(t *testing.T) {
	winner := Resolve(map[string]int{"Ashen Pact": 3, "Concord": 7, "Veilbound": 5})
	if winner != "Concord" {
		t.Fatalf("Resolve = %q, want Concord", winner)
	}
}

func TestResolveTieBreaksLexicographically(t *testing.T) {
	winner := Resolve(map[string]int{"Veilbound": 4, "Concord": 4})
	if winner != "Concord" {
		t.Fatalf("two-way tie Resolve = %q, want Concord", winner)
	}
	winner = Resolve(map[string]int{"Veilbound": 4, "Concord": 4, "Ashen Pact": 4})
	if winner != "Ashen Pact" {
		t.Fatalf("three-way tie Resolve = %q, want Ashen Pact", winner)
	}
}

func TestResolveEmpty(t *testing.T) {
	if winner := Resolve(nil); winner != "" {
		t.Fatalf("Resolve(nil) = %q, want empty", winner)
	}
}
