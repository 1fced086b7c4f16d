package raffle

import "fmt"

// Config fixes the parameters of a raffle for its whole lifetime.
type Config struct {
	EntryFee  uint64  // Fee per entry, in base units
	Authority Address // Only principal allowed to close and reopen rounds
}

func (c Config) validate() error {
	if c.EntryFee == 0 {
		return fmt.Errorf("%w: entry fee must be positive", ErrInvalidConfig)
	}
	if c.Authority.IsZero() {
		return fmt.Errorf("%w: authority must be set", ErrInvalidConfig)
	}
	return nil
}

// Totals are the running fund-accounting counters of a raffle.
type Totals struct {
	Received uint64 // All accepted entry fees
	Paid     uint64 // Refunds transferred to participants
	Retained uint64 // Winning stakes kept by the protocol
}

// Result records the outcome of one closed round.
type Result struct {
	Round        uint64
	RoundID      string
	Winner       Address
	WinnerIndex  int
	Participants []Address // Snapshot taken at close
	EntryFee     uint64
	ClosedAt     int64
}

// State is the committed state of a raffle. Stores persist it as a whole.
type State struct {
	EntryFee     uint64
	Authority    Address
	Open         bool
	RoundID      string
	Participants []Address
	Results      []Result
	Refunds      map[Address]uint64
	Totals       Totals
}

func newState(cfg Config, roundID string) *State {
	return &State{
		EntryFee:     cfg.EntryFee,
		Authority:    cfg.Authority,
		Open:         true,
		RoundID:      roundID,
		Participants: make([]Address, 0),
		Results:      make([]Result, 0),
		Refunds:      make(map[Address]uint64),
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.Participants = append(make([]Address, 0, len(s.Participants)), s.Participants...)
	c.Results = make([]Result, len(s.Results))
	for i, r := range s.Results {
		c.Results[i] = r.clone()
	}
	c.Refunds = make(map[Address]uint64, len(s.Refunds))
	for addr, amount := range s.Refunds {
		c.Refunds[addr] = amount
	}
	return &c
}

func (r Result) clone() Result {
	r.Participants = append([]Address(nil), r.Participants...)
	return r
}

// Held is the value paid into the open round and not yet attributed. A
// closed round's entries are already counted as refunds and retained value.
func (s *State) Held() uint64 {
	if !s.Open {
		return 0
	}
	return uint64(len(s.Participants)) * s.EntryFee
}

// Outstanding is the sum of all unclaimed refunds.
func (s *State) Outstanding() uint64 {
	var sum uint64
	for _, amount := range s.Refunds {
		sum += amount
	}
	return sum
}
