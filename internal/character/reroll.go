package character

import "github.com/distortia/tavern/internal/character/tables"

// FieldChange records one field transition produced by a reroll.
type FieldChange struct {
	Field string
	From  string
	To    string
}

// RerollResult reports the rerolled field and any cascaded regenerations.
type RerollResult struct {
	Change   FieldChange
	Cascades []FieldChange
	// SkippedLocked lists cascade targets left untouched because the user
	// had locked them; a lock is never overridden, even by a cascade.
	SkippedLocked []string
	// Fallbacks lists redrawn fields that fell back to their default
	// category table.
	Fallbacks []string
}

// Reroll redraws one field in place. It fails with ErrFieldNotRerollable,
// ErrFieldLocked, or ErrNoRerollsLeft (each wrapped in a *FieldError)
// without mutating the profile. On success the field's reroll budget drops
// to zero and the field locks, atomically with the value change: one reroll
// per field, then frozen.
//
// Fields that other fields are conditioned on cascade: their dependents are
// redrawn from fresh sub-seeds so the profile stays internally consistent
// with the new value. Cascaded fields keep their own locks and reroll
// budgets; only the rerolled field itself is spent and locked.
func Reroll(profile *Profile, set tables.Set, fieldName string) (RerollResult, error) {
	field, ok := set.Field(fieldName)
	if !ok || !field.Rerollable {
		return RerollResult{}, fieldErr(fieldName, ErrFieldNotRerollable)
	}
	if profile.Locks[fieldName] {
		return RerollResult{}, fieldErr(fieldName, ErrFieldLocked)
	}
	if profile.RerollsRemaining[fieldName] <= 0 {
		return RerollResult{}, fieldErr(fieldName, ErrNoRerollsLeft)
	}

	result := RerollResult{}

	profile.RollCounts[fieldName]++
	from := profile.Fields[fieldName]
	to, fellBack := drawField(*profile, field, profile.RollCounts[fieldName])
	profile.Fields[fieldName] = to
	profile.RerollsRemaining[fieldName] = 0
	profile.Locks[fieldName] = true
	result.Change = FieldChange{Field: fieldName, From: from, To: to}
	if fellBack {
		result.Fallbacks = append(result.Fallbacks, fieldName)
	}

	for _, targetName := range field.Cascades {
		if profile.Locks[targetName] {
			result.SkippedLocked = append(result.SkippedLocked, targetName)
			continue
		}
		target, ok := set.Field(targetName)
		if !ok {
			continue
		}
		profile.RollCounts[targetName]++
		targetFrom := profile.Fields[targetName]
		targetTo, targetFellBack := drawField(*profile, target, profile.RollCounts[targetName])
		profile.Fields[targetName] = targetTo
		result.Cascades = append(result.Cascades, FieldChange{
			Field: targetName,
			From:  targetFrom,
			To:    targetTo,
		})
		if targetFellBack {
			result.Fallbacks = append(result.Fallbacks, targetName)
		}
	}

	return result, nil
}

// LockField freezes a field the user has not rerolled. It is unconditional
// and idempotent; remaining rerolls are untouched (they become unusable
// until an administrative grant unlocks the field).
func LockField(profile *Profile, set tables.Set, fieldName string) error {
	if _, ok := set.Field(fieldName); !ok {
		return fieldErr(fieldName, ErrUnknownField)
	}
	profile.Locks[fieldName] = true
	return nil
}

// GrantReroll is the administrative override: it restores a single reroll
// and unlocks the field. This is the only way a field can be rerolled more
// than once.
func GrantReroll(profile *Profile, set tables.Set, fieldName string) error {
	if _, ok := set.Field(fieldName); !ok {
		return fieldErr(fieldName, ErrUnknownField)
	}
	profile.RerollsRemaining[fieldName] = 1
	profile.Locks[fieldName] = false
	return nil
}
