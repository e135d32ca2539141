package service

import (
	"context"
	"log"
	"time"

	"github.com/distortia/tavern/internal/economy"
	"github.com/distortia/tavern/internal/storage"
)

// EconomyService coordinates wallets and party settlements. Settlements
// for one group run under the scoped lock "settle:<group>" so the
// check-then-apply of a strict debit cannot interleave with another
// settlement touching the same wallets.
type EconomyService struct {
	wallets storage.WalletStore
	parties storage.PartyStore
	locks   storage.LockStore
	clock   func() time.Time
}

// NewEconomyService wires an EconomyService. A nil clock defaults to
// time.Now.
func NewEconomyService(wallets storage.WalletStore, parties storage.PartyStore, locks storage.LockStore, clock func() time.Time) *EconomyService {
	if clock == nil {
		clock = time.Now
	}
	return &EconomyService{wallets: wallets, parties: parties, locks: locks, clock: clock}
}

func groupScope(groupID string) string {
	return "settle:" + groupID
}

// Balance reads one wallet. Unknown identities have balance 0.
func (s *EconomyService) Balance(ctx context.Context, identity string) (int64, error) {
	balance, err := s.wallets.Balance(ctx, identity)
	if err != nil {
		return 0, unavailable("get balance", err)
	}
	return balance, nil
}

// Award splits total across the group's active members and credits each
// share. The split is exact: shares always sum to total.
func (s *EconomyService) Award(ctx context.Context, groupID string, total int64) (economy.Settlement, error) {
	var settlement economy.Settlement
	err := withLock(ctx, s.locks, groupScope(groupID), func() error {
		participants, err := s.activeParticipants(ctx, groupID)
		if err != nil {
			return err
		}
		settlement, err = economy.SplitInteger(total, participants)
		if err != nil {
			return err
		}
		if err := economy.CreditAll(ctx, s.wallets, settlement); err != nil {
			return unavailable("credit shares", err)
		}
		log.Printf("award settled group_id=%s total=%d participants=%d", groupID, total, len(settlement.Shares))
		return nil
	})
	if err != nil {
		return economy.Settlement{}, err
	}
	return settlement, nil
}

// Collect splits total across the group's active members and debits each
// share, all or nothing. When any member cannot cover their share the
// whole settlement aborts with an InsufficientFundsError listing every
// shortfall, and no balance changes.
func (s *EconomyService) Collect(ctx context.Context, groupID string, total int64) (economy.Settlement, error) {
	var settlement economy.Settlement
	err := withLock(ctx, s.locks, groupScope(groupID), func() error {
		participants, err := s.activeParticipants(ctx, groupID)
		if err != nil {
			return err
		}
		settlement, err = economy.SplitInteger(total, participants)
		if err != nil {
			return err
		}
		if err := economy.DebitAllStrict(ctx, s.wallets, settlement); err != nil {
			return err
		}
		log.Printf("collect settled group_id=%s total=%d participants=%d", groupID, total, len(settlement.Shares))
		return nil
	})
	if err != nil {
		return economy.Settlement{}, err
	}
	return settlement, nil
}

func (s *EconomyService) activeParticipants(ctx context.Context, groupID string) ([]string, error) {
	roster, err := s.parties.GetRoster(ctx, groupID)
	if err != nil {
		return nil, unavailable("get roster", err)
	}
	return roster.ActiveIdentities(), nil
}

// Join adds an identity to the group roster, reactivating a returning
// member.
func (s *EconomyService) Join(ctx context.Context, groupID, identity string) error {
	return withLock(ctx, s.locks, groupScope(groupID), func() error {
		roster, err := s.parties.GetRoster(ctx, groupID)
		if err != nil {
			return unavailable("get roster", err)
		}
		if err := roster.Add(identity, s.clock()); err != nil {
			return err
		}
		if err := s.parties.PutRoster(ctx, roster); err != nil {
			return unavailable("put roster", err)
		}
		log.Printf("party joined group_id=%s identity=%s", groupID, identity)
		return nil
	})
}

// SetActive toggles whether a member participates in settlements.
func (s *EconomyService) SetActive(ctx context.Context, groupID, identity string, active bool) error {
	return withLock(ctx, s.locks, groupScope(groupID), func() error {
		roster, err := s.parties.GetRoster(ctx, groupID)
		if err != nil {
			return unavailable("get roster", err)
		}
		if err := roster.SetActive(identity, active); err != nil {
			return err
		}
		if err := s.parties.PutRoster(ctx, roster); err != nil {
			return unavailable("put roster", err)
		}
		return nil
	})
}

// Leave removes a member from the roster entirely.
func (s *EconomyService) Leave(ctx context.Context, groupID, identity string) error {
	return withLock(ctx, s.locks, groupScope(groupID), func() error {
		roster, err := s.parties.GetRoster(ctx, groupID)
		if err != nil {
			return unavailable("get roster", err)
		}
		if err := roster.Remove(identity); err != nil {
			return err
		}
		if err := s.parties.PutRoster(ctx, roster); err != nil {
			return unavailable("put roster", err)
		}
		log.Printf("party left group_id=%s identity=%s", groupID, identity)
		return nil
	})
}
