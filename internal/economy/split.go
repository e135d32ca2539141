// Package economy implements group settlements: deterministic integer
// splits and their all-or-nothing application to wallets.
package economy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTotal indicates the settlement total is not a positive
	// integer amount.
	ErrInvalidTotal = errors.New("settlement total must be positive")
	// ErrNoParticipants indicates an empty participant set.
	ErrNoParticipants = errors.New("settlement requires at least one participant")
)

// Share is one participant's portion of a settlement.
type Share struct {
	Identity string
	Amount   int64
}

// Settlement is a computed split of a total across participants. It is
// recomputed per request and never persisted; only its applied wallet
// mutations are.
type Settlement struct {
	Total  int64
	Shares []Share
}

// SplitInteger divides total across the participant identities using the
// largest-remainder method: every share is floor(total/n), and the
// remaining total mod n units go one each to the first participants in
// lexicographic identity order. The tie-break is fixed, never randomized,
// so the same participant set and total always produce the same shares
// regardless of input order. Shares are returned sorted by identity.
//
// Duplicate and blank identities are dropped. The shares always sum to
// exactly total and differ from each other by at most one unit.
func SplitInteger(total int64, participants []string) (Settlement, error) {
	if total <= 0 {
		return Settlement{}, fmt.Errorf("%w: got %d", ErrInvalidTotal, total)
	}

	unique := make([]string, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, identity := range participants {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		unique = append(unique, identity)
	}
	if len(unique) == 0 {
		return Settlement{}, ErrNoParticipants
	}
	sort.Strings(unique)

	n := int64(len(unique))
	base := total / n
	remainder := total % n

	shares := make([]Share, len(unique))
	for i, identity := range unique {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		shares[i] = Share{Identity: identity, Amount: amount}
	}
	return Settlement{Total: total, Shares: shares}, nil
}
