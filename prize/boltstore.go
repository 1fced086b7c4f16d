package prize

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/bitfsorg/raffle-go/raffle"
	"go.etcd.io/bbolt"
)

var (
	bucketTokens = []byte("prize_tokens")
	bucketOwners = []byte("prize_owners")
)

// BoltTokenStore keeps tokens in a bbolt database. It can share a database
// file with raffle.BoltStore; its buckets do not collide.
type BoltTokenStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ TokenStore = (*BoltTokenStore)(nil)

// NewBoltTokenStore creates the token buckets in db if needed.
func NewBoltTokenStore(db *bbolt.DB) (*BoltTokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db", ErrNilParam)
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTokens, bucketOwners} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prize: create buckets: %w", err)
	}
	return &BoltTokenStore{db: db}, nil
}

func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func (s *BoltTokenStore) Mint(owner raffle.Address, mintedAt int64) (*Token, error) {
	var tok *Token
	err := s.db.Update(func(tx *bbolt.Tx) error {
		tb := tx.Bucket(bucketTokens)
		id, err := tb.NextSequence()
		if err != nil {
			return fmt.Errorf("boltstore: token sequence: %w", err)
		}
		tok = &Token{ID: id, Owner: owner, MintedAt: mintedAt}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(tok); err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		if err := tb.Put(idKey(id), buf.Bytes()); err != nil {
			return fmt.Errorf("boltstore: put token: %w", err)
		}

		ob := tx.Bucket(bucketOwners)
		var n uint64
		if v := ob.Get(owner[:]); len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		if err := ob.Put(owner[:], idKey(n+1)); err != nil {
			return fmt.Errorf("boltstore: put owner count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *BoltTokenStore) Get(id uint64) (*Token, error) {
	var tok *Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTokens).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("%w: %d", ErrTokenNotFound, id)
		}
		tok = &Token{}
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(tok); err != nil {
			return fmt.Errorf("boltstore: decode token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *BoltTokenStore) CountByOwner(owner raffle.Address) (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketOwners).Get(owner[:]); len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return n, err
}

func (s *BoltTokenStore) Count() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketTokens).Sequence()
		return nil
	})
	return n, err
}
