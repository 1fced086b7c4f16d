package raffle

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
)

// MemStore is an in-memory Store. It keeps deep copies, so callers cannot
// alias the committed state.
type MemStore struct {
	mu    sync.RWMutex
	state *State
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored state.
func (s *MemStore) Load() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrStateNotFound
	}
	return s.state.Clone(), nil
}

// Save replaces the stored state with a copy of state.
func (s *MemStore) Save(state *State) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	s.mu.Lock()
	s.state = state.Clone()
	s.mu.Unlock()
	return nil
}

// Balances is an in-memory Payer that credits transfers to per-address balances.
type Balances struct {
	mu       sync.RWMutex
	balances map[Address]uint64
}

// Compile-time interface check.
var _ Payer = (*Balances)(nil)

// NewBalances creates an empty balance book.
func NewBalances() *Balances {
	return &Balances{balances: make(map[Address]uint64)}
}

// Pay credits amount to the balance of to.
func (b *Balances) Pay(_ context.Context, to Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sum, carry := bits.Add64(b.balances[to], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: balance of %s", ErrAmountOverflow, to)
	}
	b.balances[to] = sum
	return nil
}

// Balance returns the total value transferred to addr.
func (b *Balances) Balance(addr Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}
