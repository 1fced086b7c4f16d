package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Raffle is a repeatable, fee-gated lottery with a pull-based refund ledger.
//
// Mutating operations are serialized by a single mutex and commit to the
// store before any external collaborator is contacted. The prize issuer,
// the payer and event handlers run with the mutex released, so a reentrant
// call observes the already committed ledger instead of deadlocking.
type Raffle struct {
	mu      sync.Mutex
	state   *State
	store   Store
	entropy EntropySource
	payer   Payer
	prize   PrizeIssuer
	now     func() time.Time

	hmu      sync.RWMutex
	handlers []EventHandler
}

// Option customizes a Raffle.
type Option func(*Raffle)

// WithStore persists state in s instead of an in-memory store.
func WithStore(s Store) Option {
	return func(r *Raffle) { r.store = s }
}

// WithPrizeIssuer sets the collaborator that awards each round's prize.
func WithPrizeIssuer(p PrizeIssuer) Option {
	return func(r *Raffle) { r.prize = p }
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(r *Raffle) { r.now = now }
}

// New creates a raffle, resuming from the store when it already holds state.
// A fresh raffle starts with an open round.
func New(cfg Config, entropy EntropySource, payer Payer, opts ...Option) (*Raffle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if entropy == nil {
		return nil, fmt.Errorf("%w: entropy source", ErrNilParam)
	}
	if payer == nil {
		return nil, fmt.Errorf("%w: payer", ErrNilParam)
	}

	r := &Raffle{
		entropy: entropy,
		payer:   payer,
		prize:   noopPrizeIssuer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = NewMemStore()
	}

	state, err := r.store.Load()
	switch {
	case errors.Is(err, ErrStateNotFound):
		state = newState(cfg, uuid.New().String())
		if err := r.store.Save(state); err != nil {
			return nil, fmt.Errorf("raffle: save initial state: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("raffle: load state: %w", err)
	default:
		if state.EntryFee != cfg.EntryFee || state.Authority != cfg.Authority {
			return nil, ErrConfigMismatch
		}
		if state.Refunds == nil {
			state.Refunds = make(map[Address]uint64)
		}
		if _, err := checkConservation(state); err != nil {
			return nil, err
		}
	}
	r.state = state

	return r, nil
}

// Subscribe registers h to receive every event raised after this call.
func (r *Raffle) Subscribe(h EventHandler) {
	if h == nil {
		return
	}
	r.hmu.Lock()
	r.handlers = append(r.handlers, h)
	r.hmu.Unlock()
}

// Enter registers sender for the current round. paid must equal the entry fee
// exactly; a rejected entry leaves no trace in the ledger.
func (r *Raffle) Enter(ctx context.Context, sender Address, paid uint64) error {
	r.mu.Lock()
	if !r.state.Open {
		r.mu.Unlock()
		return ErrRoundClosed
	}
	if paid != r.state.EntryFee {
		r.mu.Unlock()
		return fmt.Errorf("%w: paid %d, want %d", ErrIncorrectFee, paid, r.state.EntryFee)
	}
	received, carry := bits.Add64(r.state.Totals.Received, paid, 0)
	if carry != 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: total received", ErrAmountOverflow)
	}

	next := r.state.fork()
	next.Participants = append(next.Participants, sender)
	next.Totals.Received = received
	if err := r.commit(next); err != nil {
		r.mu.Unlock()
		return err
	}
	roundID := next.RoundID
	r.mu.Unlock()

	r.emit(RaffleEntered{Participant: sender, RoundID: roundID})
	return nil
}

// CloseAndSelectWinner closes the open round, picks the winner with
// entropy mod len(participants) and credits one entry fee to the refund
// balance of every losing entry. The winner's stakes are retained. The
// closed round's entries stay readable through Participants until the next
// round opens.
//
// The entropy source is only as strong as what it is fed: a value derived
// from chain state can be predicted or biased by whoever produces that state.
//
// WinnerSelected is raised before the prize issuer runs, after the ledger
// commit. A prize failure is logged and reported as a PrizeIssueFailed event
// but never returned to the caller.
func (r *Raffle) CloseAndSelectWinner(ctx context.Context, authority Address) (*Result, error) {
	r.mu.Lock()
	if authority != r.state.Authority {
		r.mu.Unlock()
		return nil, ErrNotAuthorized
	}
	if !r.state.Open {
		r.mu.Unlock()
		return nil, ErrRoundAlreadyClosed
	}
	participants := r.state.Participants
	if len(participants) == 0 {
		r.mu.Unlock()
		return nil, ErrNoParticipants
	}

	seed, err := r.entropy.Entropy(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
	}
	if seed == nil {
		r.mu.Unlock()
		return nil, ErrInvalidEntropy
	}

	idx := SelectWinnerIndex(seed, len(participants))
	winner := participants[idx]

	next := r.state.fork()
	next.Refunds = copyRefunds(r.state.Refunds)
	fee := next.EntryFee
	for _, p := range participants {
		if p == winner {
			next.Totals.Retained += fee
			continue
		}
		next.Refunds[p] += fee
	}

	result := Result{
		Round:        uint64(len(next.Results)),
		RoundID:      next.RoundID,
		Winner:       winner,
		WinnerIndex:  idx,
		Participants: append([]Address(nil), participants...),
		EntryFee:     fee,
		ClosedAt:     r.now().Unix(),
	}
	next.Results = append(next.Results, result)
	next.Open = false

	if err := r.commit(next); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"round":        result.Round,
		"round_id":     result.RoundID,
		"winner":       winner.String(),
		"participants": len(result.Participants),
	}).Info("raffle: round closed")

	r.emit(WinnerSelected{Winner: winner, Round: result.Round, RoundID: result.RoundID, Entries: len(result.Participants)})

	if err := r.prize.AwardPrize(ctx, winner); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"round":  result.Round,
			"winner": winner.String(),
		}).Warn("raffle: prize issuance failed, round stays closed")
		r.emit(PrizeIssueFailed{Winner: winner, Round: result.Round, Err: err.Error()})
	}

	out := result.clone()
	return &out, nil
}

// StartNextRound reopens the raffle for entries after a close.
func (r *Raffle) StartNextRound(ctx context.Context, authority Address) error {
	r.mu.Lock()
	if authority != r.state.Authority {
		r.mu.Unlock()
		return ErrNotAuthorized
	}
	if r.state.Open {
		r.mu.Unlock()
		return ErrRoundAlreadyOpen
	}

	next := r.state.fork()
	next.Open = true
	next.RoundID = uuid.New().String()
	next.Participants = make([]Address, 0)
	if err := r.commit(next); err != nil {
		r.mu.Unlock()
		return err
	}
	ev := RoundOpened{RoundID: next.RoundID, Round: uint64(len(next.Results))}
	r.mu.Unlock()

	r.emit(ev)
	return nil
}

// WithdrawRefund pays sender everything it is owed. The ledger entry is
// cleared and committed before the payer is called; if the transfer fails
// the entry is restored and the error wraps ErrTransferFailed.
//
// When the store journals payouts for this payer (see WithdrawalStore), the
// cleared entry and the payout record are written in one transaction.
func (r *Raffle) WithdrawRefund(ctx context.Context, sender Address) (uint64, error) {
	r.mu.Lock()
	amount := r.state.Refunds[sender]
	if amount == 0 {
		r.mu.Unlock()
		return 0, ErrNoRefundAvailable
	}

	next := r.state.fork()
	next.Refunds = copyRefunds(r.state.Refunds)
	delete(next.Refunds, sender)
	next.Totals.Paid += amount

	if ws, ok := r.store.(WithdrawalStore); ok && ws.Journals(r.payer) {
		err := ctx.Err()
		if err == nil {
			err = ws.SaveWithdrawal(next, sender, amount)
		}
		if err != nil {
			r.mu.Unlock()
			return 0, fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		r.state = next
		r.mu.Unlock()

		r.emit(RefundIssued{Recipient: sender, Amount: amount})
		return amount, nil
	}

	if err := r.commit(next); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	r.mu.Unlock()

	if err := r.payer.Pay(ctx, sender, amount); err != nil {
		if rerr := r.restoreRefund(sender, amount); rerr != nil {
			log.WithError(rerr).WithFields(log.Fields{
				"recipient": sender.String(),
				"amount":    amount,
			}).Error("raffle: could not restore refund after failed transfer")
			return 0, fmt.Errorf("%w: %w (restore: %v)", ErrTransferFailed, err, rerr)
		}
		return 0, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	r.emit(RefundIssued{Recipient: sender, Amount: amount})
	return amount, nil
}

func (r *Raffle) restoreRefund(addr Address, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.fork()
	next.Refunds = copyRefunds(r.state.Refunds)
	next.Refunds[addr] += amount
	next.Totals.Paid -= amount
	return r.commit(next)
}

// SelectWinnerIndex maps entropy onto [0, n). The modulo is Euclidean, so
// negative entropy still yields a valid index. n must be positive.
func SelectWinnerIndex(entropy *big.Int, n int) int {
	return int(new(big.Int).Mod(entropy, big.NewInt(int64(n))).Int64())
}

// commit persists next and makes it the current state. Callers hold r.mu.
func (r *Raffle) commit(next *State) error {
	if err := r.store.Save(next); err != nil {
		return fmt.Errorf("raffle: commit state: %w", err)
	}
	r.state = next
	return nil
}

func (r *Raffle) emit(ev Event) {
	r.hmu.RLock()
	handlers := append([]EventHandler(nil), r.handlers...)
	r.hmu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// fork returns a copy of s that can be mutated without affecting s.
// Slices are clipped so appends reallocate; Refunds is shared and must be
// replaced with copyRefunds before it is written.
func (s *State) fork() *State {
	next := *s
	next.Participants = s.Participants[:len(s.Participants):len(s.Participants)]
	next.Results = s.Results[:len(s.Results):len(s.Results)]
	return &next
}

func copyRefunds(m map[Address]uint64) map[Address]uint64 {
	out := make(map[Address]uint64, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
