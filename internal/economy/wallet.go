package economy

import (
	"context"
	"fmt"
	"strings"
)

// Balances is the wallet access a settlement application needs. Implemented
// by the storage layer's wallet store. Balances are non-negative by
// invariant: Debit fails rather than clamping when it would go below zero.
type Balances interface {
	Balance(ctx context.Context, identity string) (int64, error)
	Credit(ctx context.Context, identity string, amount int64) (int64, error)
	Debit(ctx context.Context, identity string, amount int64) (int64, error)
}

// Shortfall records how far one participant's balance falls below their
// share of a settlement.
type Shortfall struct {
	Identity string
	Balance  int64
	Required int64
	Missing  int64
}

// InsufficientFundsError reports every participant who cannot cover their
// share, not just the first, so callers can render a complete message.
type InsufficientFundsError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientFundsError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s needs %d more", s.Identity, s.Missing)
	}
	return "insufficient funds: " + strings.Join(parts, ", ")
}

// CreditAll applies every share as an unconditional balance increase.
// Credits cannot fail semantically once the settlement is computed; any
// error here is a storage failure.
func CreditAll(ctx context.Context, balances Balances, settlement Settlement) error {
	for _, share := range settlement.Shares {
		if _, err := balances.Credit(ctx, share.Identity, share.Amount); err != nil {
			return fmt.Errorf("credit %s: %w", share.Identity, err)
		}
	}
	return nil
}

// DebitAllStrict charges every share with all-or-nothing semantics. Every
// participant's balance is checked against their share first; if any falls
// short the whole operation aborts with an *InsufficientFundsError listing
// every shortfall, and no balance is mutated. Only when all participants
// can pay are the debits applied.
//
// The read-check-apply sequence touches multiple independent balances, so
// callers must hold the settlement scope's lock for the duration.
func DebitAllStrict(ctx context.Context, balances Balances, settlement Settlement) error {
	var shortfalls []Shortfall
	for _, share := range settlement.Shares {
		balance, err := balances.Balance(ctx, share.Identity)
		if err != nil {
			return fmt.Errorf("read balance %s: %w", share.Identity, err)
		}
		if balance < share.Amount {
			shortfalls = append(shortfalls, Shortfall{
				Identity: share.Identity,
				Balance:  balance,
				Required: share.Amount,
				Missing:  share.Amount - balance,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientFundsError{Shortfalls: shortfalls}
	}

	for _, share := range settlement.Shares {
		if _, err := balances.Debit(ctx, share.Identity, share.Amount); err != nil {
			return fmt.Errorf("debit %s: %w", share.Identity, err)
		}
	}
	return nil
}
