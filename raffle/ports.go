package raffle

import (
	"context"
	"math/big"
)

// EntropySource supplies the value used to pick a winner index. It is queried
// once per close and its output is not assumed to be unpredictable.
type EntropySource interface {
	Entropy(ctx context.Context) (*big.Int, error)
}

// EntropyFunc adapts a function to EntropySource.
type EntropyFunc func(ctx context.Context) (*big.Int, error)

// Entropy calls f(ctx).
func (f EntropyFunc) Entropy(ctx context.Context) (*big.Int, error) { return f(ctx) }

// PrizeIssuer awards the round's prize to the winner. It is called at most
// once per round, after the ledger has committed.
type PrizeIssuer interface {
	AwardPrize(ctx context.Context, winner Address) error
}

// Payer transfers refund value out of the raffle.
type Payer interface {
	Pay(ctx context.Context, to Address, amount uint64) error
}

// Store persists committed raffle state.
type Store interface {
	// Load returns the stored state, or ErrStateNotFound for an empty store.
	Load() (*State, error)

	// Save atomically replaces the stored state.
	Save(state *State) error
}

// WithdrawalStore is a Store that can also act as the payout journal. When
// Journals reports true for the raffle's payer, a withdrawal commits the
// cleared refund and the payout record in one transaction instead of calling
// the payer.
type WithdrawalStore interface {
	Store
	Journals(p Payer) bool
	SaveWithdrawal(state *State, to Address, amount uint64) error
}

type noopPrizeIssuer struct{}

func (noopPrizeIssuer) AwardPrize(context.Context, Address) error { return nil }
