package character

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/distortia/tavern/internal/character/tables"
	"github.com/distortia/tavern/internal/random"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func travelerSeed() string {
	return random.JoinParts("user123", "traveler", "v1")
}

func TestGenerateIsReproducible(t *testing.T) {
	set := tables.Traveler()
	first, _ := Generate(travelerSeed(), set, nil, testNow)
	second, _ := Generate(travelerSeed(), set, nil, testNow)
	if !reflect.DeepEqual(first.Fields, second.Fields) {
		t.Fatalf("same seed text produced different profiles:\n%v\n%v", first.Fields, second.Fields)
	}
}

func TestGeneratePopulatesEveryField(t *testing.T) {
	set := tables.Traveler()
	profile, fallbacks := Generate(travelerSeed(), set, nil, testNow)
	if len(fallbacks) != 0 {
		t.Fatalf("unexpected fallbacks: %v", fallbacks)
	}
	for _, field := range set.Fields {
		if profile.Fields[field.Name] == "" {
			t.Fatalf("field %q is empty", field.Name)
		}
		if profile.Locks[field.Name] {
			t.Fatalf("field %q starts locked", field.Name)
		}
		if profile.RerollsRemaining[field.Name] != 1 {
			t.Fatalf("field %q starts with %d rerolls, want 1", field.Name, profile.RerollsRemaining[field.Name])
		}
	}
	if profile.Kind != "traveler" {
		t.Fatalf("kind = %q, want traveler", profile.Kind)
	}
}

func TestGenerateOverridesDoNotShiftOtherFields(t *testing.T) {
	set := tables.Traveler()
	plain, _ := Generate(travelerSeed(), set, nil, testNow)
	overridden, _ := Generate(travelerSeed(), set, map[string]string{"class": "ferrier"}, testNow)

	if overridden.Fields["class"] != "ferrier" {
		t.Fatalf("override ignored, class = %q", overridden.Fields["class"])
	}
	for name, value := range plain.Fields {
		if name == "class" {
			continue
		}
		// Fields independent of class must be identical with or without
		// the override.
		if overridden.Fields[name] != value {
			t.Fatalf("field %q changed under unrelated override: %q vs %q", name, value, overridden.Fields[name])
		}
	}
}

func TestGenerateUnknownRaceFallsBack(t *testing.T) {
	set := tables.Traveler()
	profile, fallbacks := Generate(travelerSeed(), set, map[string]string{"race": "martian"}, testNow)
	if profile.Fields["race"] != "martian" {
		t.Fatalf("race override ignored: %q", profile.Fields["race"])
	}
	wantFallbacks := map[string]bool{"age_band": true, "physical_traits": true, "color_variation": true}
	for _, name := range fallbacks {
		if !wantFallbacks[name] {
			t.Fatalf("unexpected fallback field %q", name)
		}
		delete(wantFallbacks, name)
	}
	for name := range wantFallbacks {
		t.Fatalf("field %q did not report fallback", name)
	}
	if profile.Fields["age_band"] == "" {
		t.Fatal("fallback produced an empty age_band")
	}
}

func TestRerollLocksAtomically(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)

	result, err := Reroll(&profile, set, "name")
	if err != nil {
		t.Fatalf("first reroll: %v", err)
	}
	if result.Change.Field != "name" {
		t.Fatalf("changed field = %q, want name", result.Change.Field)
	}
	if profile.RerollsRemaining["name"] != 0 {
		t.Fatalf("rerolls remaining = %d, want 0", profile.RerollsRemaining["name"])
	}
	if !profile.Locks["name"] {
		t.Fatal("field not locked after reroll")
	}

	// The lock is recorded atomically with the reroll, so the second
	// attempt must report the lock, never an exhausted budget.
	_, err = Reroll(&profile, set, "name")
	if !errors.Is(err, ErrFieldLocked) {
		t.Fatalf("second reroll error = %v, want %v", err, ErrFieldLocked)
	}
}

func TestRerollErrorCarriesField(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)
	profile.Locks["region"] = true

	_, err := Reroll(&profile, set, "region")
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a *FieldError", err)
	}
	if fe.Field != "region" {
		t.Fatalf("error field = %q, want region", fe.Field)
	}
}

func TestRerollRejectsUnknownOrFixedFields(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)
	_, err := Reroll(&profile, set, "vehicle")
	if !errors.Is(err, ErrFieldNotRerollable) {
		t.Fatalf("reroll unknown field error = %v, want %v", err, ErrFieldNotRerollable)
	}
}

func TestRerollRaceCascades(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)

	result, err := Reroll(&profile, set, "race")
	if err != nil {
		t.Fatalf("reroll race: %v", err)
	}

	cascaded := map[string]bool{}
	for _, change := range result.Cascades {
		cascaded[change.Field] = true
	}
	for _, want := range []string{"age_band", "physical_traits", "color_variation"} {
		if !cascaded[want] {
			t.Fatalf("field %q did not cascade on race reroll", want)
		}
	}

	// Dependent values must come from the new race's pools.
	newRace := profile.Fields["race"]
	traits, _ := set.Field("physical_traits")
	pool := traits.Pool.ByCategory[newRace]
	if len(pool) == 0 {
		pool = traits.Pool.ByCategory[traits.Pool.DefaultCategory]
	}
	allowed := map[string]bool{}
	for _, e := range pool {
		allowed[e.Value] = true
	}
	if !allowed[profile.Fields["physical_traits"]] {
		t.Fatalf("physical_traits %q not drawn from %s pool", profile.Fields["physical_traits"], newRace)
	}

	// Cascaded fields keep their own budgets and locks.
	if profile.Locks["physical_traits"] {
		t.Fatal("cascade locked a dependent field")
	}
	if profile.RerollsRemaining["physical_traits"] != 1 {
		t.Fatal("cascade consumed a dependent field's reroll")
	}
}

func TestRerollSkipsLockedCascadeTargets(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)
	if err := LockField(&profile, set, "age_band"); err != nil {
		t.Fatalf("lock age_band: %v", err)
	}
	lockedValue := profile.Fields["age_band"]

	result, err := Reroll(&profile, set, "race")
	if err != nil {
		t.Fatalf("reroll race: %v", err)
	}
	if profile.Fields["age_band"] != lockedValue {
		t.Fatal("cascade mutated a locked field")
	}
	found := false
	for _, name := range result.SkippedLocked {
		if name == "age_band" {
			found = true
		}
	}
	if !found {
		t.Fatalf("skipped locked fields = %v, want age_band listed", result.SkippedLocked)
	}
}

func TestRerollGenderCascadesName(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)

	result, err := Reroll(&profile, set, "gender")
	if err != nil {
		t.Fatalf("reroll gender: %v", err)
	}
	if len(result.Cascades) != 1 || result.Cascades[0].Field != "name" {
		t.Fatalf("gender cascades = %+v, want exactly name", result.Cascades)
	}

	nameField, _ := set.Field("name")
	pool := nameField.Pool.ByCategory[profile.Fields["gender"]]
	allowed := map[string]bool{}
	for _, e := range pool {
		allowed[e.Value] = true
	}
	if !allowed[profile.Fields["name"]] {
		t.Fatalf("name %q not drawn from %q pool", profile.Fields["name"], profile.Fields["gender"])
	}
}

func TestLockFieldIsIdempotent(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)
	if err := LockField(&profile, set, "backstory"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := LockField(&profile, set, "backstory"); err != nil {
		t.Fatalf("second lock: %v", err)
	}
	_, err := Reroll(&profile, set, "backstory")
	if !errors.Is(err, ErrFieldLocked) {
		t.Fatalf("reroll after lock error = %v, want %v", err, ErrFieldLocked)
	}
	if err := LockField(&profile, set, "mystery"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("lock unknown field error = %v, want %v", err, ErrUnknownField)
	}
}

func TestGrantRerollAllowsSecondReroll(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)

	first, err := Reroll(&profile, set, "backstory")
	if err != nil {
		t.Fatalf("first reroll: %v", err)
	}
	if err := GrantReroll(&profile, set, "backstory"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if profile.Locks["backstory"] || profile.RerollsRemaining["backstory"] != 1 {
		t.Fatalf("grant did not reset state: locked=%v remaining=%d",
			profile.Locks["backstory"], profile.RerollsRemaining["backstory"])
	}

	second, err := Reroll(&profile, set, "backstory")
	if err != nil {
		t.Fatalf("second reroll after grant: %v", err)
	}
	// Each reroll advances the draw sequence, so the second reroll draws
	// independently of the first.
	if second.Change.From != first.Change.To {
		t.Fatalf("second reroll started from %q, want %q", second.Change.From, first.Change.To)
	}
}

func TestProfileCloneIsDeep(t *testing.T) {
	set := tables.Traveler()
	profile, _ := Generate(travelerSeed(), set, nil, testNow)
	clone := profile.Clone()
	clone.Fields["race"] = "changed"
	clone.Locks["race"] = true
	clone.RerollsRemaining["race"] = 99
	if profile.Fields["race"] == "changed" || profile.Locks["race"] || profile.RerollsRemaining["race"] == 99 {
		t.Fatal("mutating the clone mutated the original")
	}
}
