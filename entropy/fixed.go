// Package entropy provides winner-selection entropy sources for raffle.
//
// None of these sources is unpredictable against a motivated party: fixed
// values are public, block-derived values can be ground by block producers,
// and a beacon is only as honest as whoever publishes it.
package entropy

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Fixed always returns the same value. It is meant for tests and replays.
type Fixed struct {
	v *big.Int
}

// NewFixed returns a source that always yields n.
func NewFixed(n int64) *Fixed {
	return &Fixed{v: big.NewInt(n)}
}

// ParseFixed parses a decimal or 0x-prefixed hex integer.
func ParseFixed(s string) (*Fixed, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return &Fixed{v: v}, nil
}

// Entropy returns a copy of the fixed value.
func (f *Fixed) Entropy(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.v), nil
}

// Sequence yields its values in order, one per call, and then fails with
// ErrSequenceExhausted.
type Sequence struct {
	mu     sync.Mutex
	values []*big.Int
	next   int
}

// NewSequence returns a source that yields values in order.
func NewSequence(values ...int64) *Sequence {
	s := &Sequence{values: make([]*big.Int, len(values))}
	for i, v := range values {
		s.values[i] = big.NewInt(v)
	}
	return s
}

// Entropy returns the next value of the sequence.
func (s *Sequence) Entropy(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.values) {
		return nil, fmt.Errorf("%w: %d values used", ErrSequenceExhausted, len(s.values))
	}
	v := s.values[s.next]
	s.next++
	return new(big.Int).Set(v), nil
}

// Remaining reports how many values are left.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.next
}
