package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/distortia/tavern/internal/character"
	"github.com/distortia/tavern/internal/character/tables"
	"github.com/distortia/tavern/internal/dice"
	"github.com/distortia/tavern/internal/platform/id"
	"github.com/distortia/tavern/internal/random"
	"github.com/distortia/tavern/internal/storage"
)

// CharacterService coordinates profile and ability score operations. All
// mutations for one owner run under the scoped lock "reroll:<owner>", so
// concurrent commands for the same user serialize instead of clobbering
// each other.
type CharacterService struct {
	profiles  storage.ProfileStore
	abilities storage.AbilityStore
	locks     storage.LockStore
	clock     func() time.Time
	newID     func() (string, error)
}

// NewCharacterService wires a CharacterService. A nil clock defaults to
// time.Now and a nil idGenerator to id.NewID.
func NewCharacterService(profiles storage.ProfileStore, abilities storage.AbilityStore, locks storage.LockStore, clock func() time.Time, idGenerator func() (string, error)) *CharacterService {
	if clock == nil {
		clock = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return &CharacterService{
		profiles:  profiles,
		abilities: abilities,
		locks:     locks,
		clock:     clock,
		newID:     idGenerator,
	}
}

func ownerScope(ownerID string) string {
	return "reroll:" + ownerID
}

// GenerateResult reports a profile lookup-or-create.
type GenerateResult struct {
	Profile character.Profile
	// Created is false when the owner already had a profile of this kind
	// and the existing one is returned unchanged.
	Created bool
	// Fallbacks lists fields whose category had no pool and fell back to
	// the default one.
	Fallbacks []string
}

// Generate returns the owner's profile of the given kind, creating it
// deterministically from a fresh seed when absent. Overrides pin fields
// on creation; they are ignored for an existing profile.
func (s *CharacterService) Generate(ctx context.Context, ownerID, kind string, overrides map[string]string) (GenerateResult, error) {
	set, ok := tables.ByKind(kind)
	if !ok {
		return GenerateResult{}, ErrUnknownKind
	}

	var result GenerateResult
	err := withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		existing, err := s.profiles.GetProfile(ctx, ownerID, kind)
		if err == nil {
			result = GenerateResult{Profile: existing}
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return unavailable("get profile", err)
		}

		profileID, err := s.newID()
		if err != nil {
			return unavailable("new profile id", err)
		}
		// The id is part of the seed so a wiped profile regenerates
		// differently instead of reproducing the old one.
		seedText := random.JoinParts(ownerID, kind, profileID)
		profile, fallbacks := character.Generate(seedText, set, overrides, s.clock())
		profile.ID = profileID
		profile.OwnerID = ownerID
		if err := s.profiles.PutProfile(ctx, profile); err != nil {
			return unavailable("put profile", err)
		}
		if len(fallbacks) > 0 {
			log.Printf("category fallback owner_id=%s kind=%s fields=%v", ownerID, kind, fallbacks)
		}
		log.Printf("profile generated owner_id=%s kind=%s profile_id=%s", ownerID, kind, profileID)
		result = GenerateResult{Profile: profile, Created: true, Fallbacks: fallbacks}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

// RerollField consumes the field's single reroll, locks it, and applies
// cascades. Semantic failures come back as the character package's
// sentinel errors wrapped in a FieldError.
func (s *CharacterService) RerollField(ctx context.Context, ownerID, kind, fieldName string) (character.RerollResult, error) {
	set, ok := tables.ByKind(kind)
	if !ok {
		return character.RerollResult{}, ErrUnknownKind
	}

	var result character.RerollResult
	err := withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		profile, err := s.profiles.GetProfile(ctx, ownerID, kind)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("get profile", err)
		}
		result, err = character.Reroll(&profile, set, fieldName)
		if err != nil {
			return err
		}
		profile.UpdatedAt = s.clock()
		if err := s.profiles.PutProfile(ctx, profile); err != nil {
			return unavailable("put profile", err)
		}
		if len(result.Fallbacks) > 0 {
			log.Printf("category fallback owner_id=%s kind=%s fields=%v", ownerID, kind, result.Fallbacks)
		}
		log.Printf("field rerolled owner_id=%s kind=%s field=%s from=%q to=%q",
			ownerID, kind, fieldName, result.Change.From, result.Change.To)
		return nil
	})
	if err != nil {
		return character.RerollResult{}, err
	}
	return result, nil
}

// LockField pins a field against future rerolls without consuming its
// reroll. Locking an already locked field succeeds.
func (s *CharacterService) LockField(ctx context.Context, ownerID, kind, fieldName string) error {
	set, ok := tables.ByKind(kind)
	if !ok {
		return ErrUnknownKind
	}
	return withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		profile, err := s.profiles.GetProfile(ctx, ownerID, kind)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("get profile", err)
		}
		if err := character.LockField(&profile, set, fieldName); err != nil {
			return err
		}
		profile.UpdatedAt = s.clock()
		if err := s.profiles.PutProfile(ctx, profile); err != nil {
			return unavailable("put profile", err)
		}
		return nil
	})
}

// GrantReroll restores a field's reroll and unlocks it, the moderator
// override for the single-use rule.
func (s *CharacterService) GrantReroll(ctx context.Context, ownerID, kind, fieldName string) error {
	set, ok := tables.ByKind(kind)
	if !ok {
		return ErrUnknownKind
	}
	return withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		profile, err := s.profiles.GetProfile(ctx, ownerID, kind)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("get profile", err)
		}
		if err := character.GrantReroll(&profile, set, fieldName); err != nil {
			return err
		}
		profile.UpdatedAt = s.clock()
		if err := s.profiles.PutProfile(ctx, profile); err != nil {
			return unavailable("put profile", err)
		}
		log.Printf("reroll granted owner_id=%s kind=%s field=%s", ownerID, kind, fieldName)
		return nil
	})
}

// Wipe deletes the owner's profile of the given kind so the next
// Generate starts over. Wiping a missing profile returns
// storage.ErrNotFound.
func (s *CharacterService) Wipe(ctx context.Context, ownerID, kind string) error {
	if _, ok := tables.ByKind(kind); !ok {
		return ErrUnknownKind
	}
	return withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		if err := s.profiles.DeleteProfile(ctx, ownerID, kind); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("delete profile", err)
		}
		log.Printf("profile wiped owner_id=%s kind=%s", ownerID, kind)
		return nil
	})
}

// AbilityResult reports an ability score lookup-or-create.
type AbilityResult struct {
	State   dice.AbilityState
	Created bool
}

// RollAbilities returns the owner's ability scores, rolling a fresh set
// when absent. A fresh set carries its full reroll budget.
func (s *CharacterService) RollAbilities(ctx context.Context, ownerID string) (AbilityResult, error) {
	var result AbilityResult
	err := withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		existing, err := s.abilities.GetAbilityState(ctx, ownerID)
		if err == nil {
			result = AbilityResult{State: existing}
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return unavailable("get ability state", err)
		}

		nonce, err := s.newID()
		if err != nil {
			return unavailable("new ability seed", err)
		}
		state := dice.NewAbilityState(ownerID, random.JoinParts(ownerID, "abilities", nonce))
		if err := s.abilities.PutAbilityState(ctx, *state); err != nil {
			return unavailable("put ability state", err)
		}
		log.Printf("abilities rolled owner_id=%s", ownerID)
		result = AbilityResult{State: *state, Created: true}
		return nil
	})
	if err != nil {
		return AbilityResult{}, err
	}
	return result, nil
}

// RerollAbilities rerolls the whole score set, consuming one of the two
// rerolls. Locked sets and exhausted budgets surface the dice package's
// sentinel errors.
func (s *CharacterService) RerollAbilities(ctx context.Context, ownerID string) (dice.AbilityState, error) {
	var state dice.AbilityState
	err := withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		existing, err := s.abilities.GetAbilityState(ctx, ownerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("get ability state", err)
		}
		if _, err := existing.Reroll(); err != nil {
			return err
		}
		if err := s.abilities.PutAbilityState(ctx, existing); err != nil {
			return unavailable("put ability state", err)
		}
		log.Printf("abilities rerolled owner_id=%s rerolls_remaining=%d", ownerID, existing.RerollsRemaining)
		state = existing
		return nil
	})
	if err != nil {
		return dice.AbilityState{}, err
	}
	return state, nil
}

// LockAbilities pins the score set against further rerolls.
func (s *CharacterService) LockAbilities(ctx context.Context, ownerID string) error {
	return withLock(ctx, s.locks, ownerScope(ownerID), func() error {
		existing, err := s.abilities.GetAbilityState(ctx, ownerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return unavailable("get ability state", err)
		}
		existing.Lock()
		if err := s.abilities.PutAbilityState(ctx, existing); err != nil {
			return unavailable("put ability state", err)
		}
		return nil
	})
}
