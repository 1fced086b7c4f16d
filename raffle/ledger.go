package raffle

import "fmt"

// Audit is a snapshot of where every received unit currently sits.
type Audit struct {
	Received    uint64
	Held        uint64 // Entries of the open round
	Outstanding uint64 // Refunds owed
	Paid        uint64
	Retained    uint64
}

// Audit checks fund conservation:
// Received == Held + Outstanding + Paid + Retained.
func (r *Raffle) Audit() (*Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return checkConservation(r.state)
}

func checkConservation(s *State) (*Audit, error) {
	a := &Audit{
		Received:    s.Totals.Received,
		Held:        s.Held(),
		Outstanding: s.Outstanding(),
		Paid:        s.Totals.Paid,
		Retained:    s.Totals.Retained,
	}
	accounted := a.Held + a.Outstanding + a.Paid + a.Retained
	if accounted != a.Received {
		return a, fmt.Errorf("%w: received %d, accounted %d (held %d, outstanding %d, paid %d, retained %d)",
			ErrConservationViolated, a.Received, accounted, a.Held, a.Outstanding, a.Paid, a.Retained)
	}
	return a, nil
}
