// Package character implements procedural profile generation and the
// per-field reroll ledger for traveler and job profiles.
package character

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownField indicates the field does not exist in the profile's
	// table set.
	ErrUnknownField = errors.New("unknown profile field")
	// ErrFieldNotRerollable indicates the field is not in the rerollable set.
	ErrFieldNotRerollable = errors.New("field is not rerollable")
	// ErrFieldLocked indicates the field has been frozen.
	ErrFieldLocked = errors.New("field is locked")
	// ErrNoRerollsLeft indicates the field's reroll budget is spent.
	ErrNoRerollsLeft = errors.New("no rerolls remaining for field")
)

// FieldError wraps one of the sentinel errors above with the field that
// triggered it, so callers can render a specific message.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// Profile is a generated character or job record. Fields holds the current
// value per field name; Locks and RerollsRemaining are parallel maps over
// the same key space. A locked field is never mutated again; a field with
// zero rerolls remaining can only change through an explicit grant.
type Profile struct {
	ID               string
	OwnerID          string
	Kind             string
	SeedText         string
	Fields           map[string]string
	Locks            map[string]bool
	RerollsRemaining map[string]int
	RollCounts       map[string]int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Fields = cloneStrings(p.Fields)
	out.Locks = cloneBools(p.Locks)
	out.RerollsRemaining = cloneInts(p.RerollsRemaining)
	out.RollCounts = cloneInts(p.RollCounts)
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBools(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneInts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
