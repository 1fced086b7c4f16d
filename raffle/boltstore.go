package raffle

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta    = []byte("meta")
	bucketResults = []byte("results")
	bucketRefunds = []byte("refunds")
	bucketPayouts = []byte("payouts")
	bucketPaid    = []byte("paid")

	keyState = []byte("state")
)

// BoltStore wraps a bbolt database for raffle state and the payout journal.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ WithdrawalStore = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("raffle: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("raffle: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketResults, bucketRefunds, bucketPayouts, bucketPaid} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("raffle: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// DB exposes the underlying database so other components can keep their
// buckets in the same file.
func (s *BoltStore) DB() *bbolt.DB { return s.db }

// Payouts returns a Payer that journals transfers in this database.
func (s *BoltStore) Payouts() *BoltPayer { return &BoltPayer{db: s.db} }

// storedMeta is the round-level part of State. Results and refunds live in
// their own buckets.
type storedMeta struct {
	EntryFee     uint64
	Authority    Address
	Open         bool
	RoundID      string
	Participants []Address
	Totals       Totals
}

func u64Key(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Load reads the full raffle state.
func (s *BoltStore) Load() (*State, error) {
	var state *State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyState)
		if data == nil {
			return ErrStateNotFound
		}
		var meta storedMeta
		if err := decodeGob(data, &meta); err != nil {
			return fmt.Errorf("boltstore: decode state: %w", err)
		}
		state = &State{
			EntryFee:     meta.EntryFee,
			Authority:    meta.Authority,
			Open:         meta.Open,
			RoundID:      meta.RoundID,
			Participants: meta.Participants,
			Totals:       meta.Totals,
			Results:      make([]Result, 0),
			Refunds:      make(map[Address]uint64),
		}
		if state.Participants == nil {
			state.Participants = make([]Address, 0)
		}

		err := tx.Bucket(bucketResults).ForEach(func(k, v []byte) error {
			var res Result
			if err := decodeGob(v, &res); err != nil {
				return fmt.Errorf("boltstore: decode result: %w", err)
			}
			if res.Round != uint64(len(state.Results)) {
				return fmt.Errorf("boltstore: result %d stored out of order", res.Round)
			}
			state.Results = append(state.Results, res)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketRefunds).ForEach(func(k, v []byte) error {
			addr, err := AddressFromPubKeyHash(k)
			if err != nil {
				return fmt.Errorf("boltstore: refund key: %w", err)
			}
			if len(v) != 8 {
				return fmt.Errorf("boltstore: refund value for %s has %d bytes", addr, len(v))
			}
			state.Refunds[addr] = binary.BigEndian.Uint64(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save writes state in a single transaction. Results are append-only: a
// state with fewer results than already stored is rejected.
func (s *BoltStore) Save(state *State) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return saveState(tx, state)
	})
}

// Journals reports whether p is this database's own payout journal.
func (s *BoltStore) Journals(p Payer) bool {
	bp, ok := p.(*BoltPayer)
	return ok && bp.db == s.db
}

// SaveWithdrawal saves state and journals the payout to to in a single
// transaction, so the cleared refund and its payout record cannot diverge.
func (s *BoltStore) SaveWithdrawal(state *State, to Address, amount uint64) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := saveState(tx, state); err != nil {
			return err
		}
		return journalPayout(tx, to, amount)
	})
}

func saveState(tx *bbolt.Tx, state *State) error {
	data, err := encodeGob(storedMeta{
		EntryFee:     state.EntryFee,
		Authority:    state.Authority,
		Open:         state.Open,
		RoundID:      state.RoundID,
		Participants: state.Participants,
		Totals:       state.Totals,
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := tx.Bucket(bucketMeta).Put(keyState, data); err != nil {
		return fmt.Errorf("boltstore: put state: %w", err)
	}

	rb := tx.Bucket(bucketResults)
	if last, _ := rb.Cursor().Last(); last != nil {
		if stored := binary.BigEndian.Uint64(last) + 1; stored > uint64(len(state.Results)) {
			return fmt.Errorf("boltstore: result history would shrink from %d to %d", stored, len(state.Results))
		}
	}
	for i := range state.Results {
		key := u64Key(uint64(i))
		if rb.Get(key) != nil {
			continue
		}
		data, err := encodeGob(state.Results[i])
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := rb.Put(key, data); err != nil {
			return fmt.Errorf("boltstore: put result: %w", err)
		}
	}

	fb := tx.Bucket(bucketRefunds)
	var stale [][]byte
	c := fb.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		addr, err := AddressFromPubKeyHash(k)
		if err != nil || state.Refunds[addr] == 0 {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := fb.Delete(k); err != nil {
			return fmt.Errorf("boltstore: delete refund: %w", err)
		}
	}
	for addr, amount := range state.Refunds {
		if amount == 0 {
			continue
		}
		key := addr
		if err := fb.Put(key[:], u64Key(amount)); err != nil {
			return fmt.Errorf("boltstore: put refund: %w", err)
		}
	}
	return nil
}

// Payout is one journaled refund transfer.
type Payout struct {
	Seq    uint64
	To     Address
	Amount uint64
	At     int64
}

// BoltPayer journals transfers and keeps a cumulative total per recipient.
type BoltPayer struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Payer = (*BoltPayer)(nil)

// Pay appends a payout record and credits the recipient's running total.
func (p *BoltPayer) Pay(ctx context.Context, to Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(tx *bbolt.Tx) error {
		return journalPayout(tx, to, amount)
	})
}

func journalPayout(tx *bbolt.Tx, to Address, amount uint64) error {
	pb := tx.Bucket(bucketPayouts)
	seq, err := pb.NextSequence()
	if err != nil {
		return fmt.Errorf("boltstore: payout sequence: %w", err)
	}
	data, err := encodeGob(Payout{Seq: seq, To: to, Amount: amount, At: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("encode payout: %w", err)
	}
	if err := pb.Put(u64Key(seq), data); err != nil {
		return fmt.Errorf("boltstore: put payout: %w", err)
	}

	paid := tx.Bucket(bucketPaid)
	var total uint64
	if v := paid.Get(to[:]); len(v) == 8 {
		total = binary.BigEndian.Uint64(v)
	}
	if total+amount < total {
		return fmt.Errorf("%w: paid total of %s", ErrAmountOverflow, to)
	}
	if err := paid.Put(to[:], u64Key(total+amount)); err != nil {
		return fmt.Errorf("boltstore: put paid total: %w", err)
	}
	return nil
}

// PaidTo returns the total value ever transferred to addr.
func (p *BoltPayer) PaidTo(addr Address) (uint64, error) {
	var total uint64
	err := p.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketPaid).Get(addr[:]); len(v) == 8 {
			total = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return total, err
}

// ListPayouts returns every journaled transfer in order.
func (p *BoltPayer) ListPayouts() ([]*Payout, error) {
	var out []*Payout
	err := p.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPayouts).ForEach(func(k, v []byte) error {
			var po Payout
			if err := decodeGob(v, &po); err != nil {
				return fmt.Errorf("boltstore: decode payout: %w", err)
			}
			out = append(out, &po)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list payouts: %w", err)
	}
	return out, nil
}
