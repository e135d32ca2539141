// Package party maintains group rosters for travelers. Only active members
// take part in group settlements.
package party

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyIdentity indicates a blank member identity.
	ErrEmptyIdentity = errors.New("member identity is required")
	// ErrNotMember indicates the identity is not on the roster.
	ErrNotMember = errors.New("identity is not a party member")
)

// Member is one roster entry. Inactive members stay on the roster but are
// excluded from settlements until reactivated.
type Member struct {
	Identity string
	Active   bool
	JoinedAt time.Time
}

// Roster is the member set for one group.
type Roster struct {
	GroupID string
	Members []Member
}

// Add puts an identity on the roster as active. Adding an existing member
// reactivates them instead of duplicating the entry.
func (r *Roster) Add(identity string, now time.Time) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ErrEmptyIdentity
	}
	for i := range r.Members {
		if r.Members[i].Identity == identity {
			r.Members[i].Active = true
			return nil
		}
	}
	r.Members = append(r.Members, Member{Identity: identity, Active: true, JoinedAt: now.UTC()})
	return nil
}

// SetActive flips a member's participation flag.
func (r *Roster) SetActive(identity string, active bool) error {
	for i := range r.Members {
		if r.Members[i].Identity == identity {
			r.Members[i].Active = active
			return nil
		}
	}
	return ErrNotMember
}

// Remove drops a member from the roster entirely.
func (r *Roster) Remove(identity string) error {
	for i := range r.Members {
		if r.Members[i].Identity == identity {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return nil
		}
	}
	return ErrNotMember
}

// ActiveIdentities returns the identities that participate in settlements,
// in join order.
func (r *Roster) ActiveIdentities() []string {
	active := make([]string, 0, len(r.Members))
	for _, member := range r.Members {
		if member.Active {
			active = append(active, member.Identity)
		}
	}
	return active
}
