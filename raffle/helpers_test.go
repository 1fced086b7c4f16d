package raffle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// oneCoin is 1.0 in 18-decimal base units.
const oneCoin = uint64(1_000_000_000_000_000_000)

var (
	authority = makeAddr(0xF0)
	alice     = makeAddr(0xA1)
	bob       = makeAddr(0xB2)
	carol     = makeAddr(0xC3)
	dave      = makeAddr(0xD4)
)

func makeAddr(seed byte) Address {
	var a Address
	for i := range a {
		a[i] = seed
	}
	return a
}

func fixedEntropy(n int64) EntropySource {
	return EntropyFunc(func(context.Context) (*big.Int, error) {
		return big.NewInt(n), nil
	})
}

// eventLog records every event a raffle emits.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) winnersSelected() []WinnerSelected {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []WinnerSelected
	for _, ev := range l.events {
		if ws, ok := ev.(WinnerSelected); ok {
			out = append(out, ws)
		}
	}
	return out
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

type payerFunc func(ctx context.Context, to Address, amount uint64) error

func (f payerFunc) Pay(ctx context.Context, to Address, amount uint64) error { return f(ctx, to, amount) }

type prizeFunc func(ctx context.Context, winner Address) error

func (f prizeFunc) AwardPrize(ctx context.Context, winner Address) error { return f(ctx, winner) }

// flakyStore fails every Save while fail is set.
type flakyStore struct {
	*MemStore
	fail bool
}

func (s *flakyStore) Save(state *State) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemStore.Save(state)
}

type fixture struct {
	raffle   *Raffle
	balances *Balances
	events   *eventLog
}

func newFixture(t *testing.T, entropy EntropySource, opts ...Option) *fixture {
	t.Helper()
	balances := NewBalances()
	r, err := New(Config{EntryFee: oneCoin, Authority: authority}, entropy, balances, opts...)
	require.NoError(t, err)
	events := &eventLog{}
	r.Subscribe(events.handle)
	return &fixture{raffle: r, balances: balances, events: events}
}

func (f *fixture) enterAll(t *testing.T, addrs ...Address) {
	t.Helper()
	for _, a := range addrs {
		require.NoError(t, f.raffle.Enter(context.Background(), a, oneCoin))
	}
}

func requireBalanced(t *testing.T, r *Raffle) {
	t.Helper()
	_, err := r.Audit()
	require.NoError(t, err)
}
