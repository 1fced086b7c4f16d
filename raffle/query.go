package raffle

import "fmt"

// IsRoundOpen reports whether the current round accepts entries.
func (r *Raffle) IsRoundOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Open
}

// Participants returns the entries of the current round in entry order. After
// a close it keeps returning the closed round's entries until StartNextRound.
func (r *Raffle) Participants() []Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Address{}, r.state.Participants...)
}

// Result returns the outcome of the given closed round (indexed from 0).
func (r *Raffle) Result(round uint64) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if round >= uint64(len(r.state.Results)) {
		return nil, fmt.Errorf("%w: %d (closed rounds: %d)", ErrInvalidRoundIndex, round, len(r.state.Results))
	}
	res := r.state.Results[round].clone()
	return &res, nil
}

// LatestResult returns the outcome of the most recently closed round.
func (r *Raffle) LatestResult() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.state.Results) == 0 {
		return nil, fmt.Errorf("%w: no closed rounds", ErrInvalidRoundIndex)
	}
	res := r.state.Results[len(r.state.Results)-1].clone()
	return &res, nil
}

// RoundCount returns the number of closed rounds.
func (r *Raffle) RoundCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.state.Results))
}

// RefundBalance returns the amount addr can currently withdraw.
func (r *Raffle) RefundBalance(addr Address) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Refunds[addr]
}

// Refunds returns a copy of all outstanding refund balances.
func (r *Raffle) Refunds() map[Address]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyRefunds(r.state.Refunds)
}

// RoundID returns the identifier of the current (or last closed) round.
func (r *Raffle) RoundID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.RoundID
}

// EntryFee returns the fixed fee per entry.
func (r *Raffle) EntryFee() uint64 { return r.config().EntryFee }

// Authority returns the principal allowed to close and reopen rounds.
func (r *Raffle) Authority() Address { return r.config().Authority }

// Totals returns the running accounting counters.
func (r *Raffle) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Totals
}

func (r *Raffle) config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Config{EntryFee: r.state.EntryFee, Authority: r.state.Authority}
}
