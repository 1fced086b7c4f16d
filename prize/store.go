package prize

import (
	"fmt"
	"sync"

	"github.com/bitfsorg/raffle-go/raffle"
)

// Token is one minted winner badge.
type Token struct {
	ID       uint64 // Sequential, starting at 1
	Owner    raffle.Address
	MintedAt int64
}

// TokenStore persists minted tokens.
type TokenStore interface {
	// Mint assigns the next token ID to owner and stores the token.
	Mint(owner raffle.Address, mintedAt int64) (*Token, error)

	// Get retrieves a token by ID.
	Get(id uint64) (*Token, error)

	// CountByOwner returns how many tokens owner holds.
	CountByOwner(owner raffle.Address) (uint64, error)

	// Count returns the total number of minted tokens.
	Count() (uint64, error)
}

// MemTokenStore is an in-memory TokenStore.
type MemTokenStore struct {
	mu      sync.RWMutex
	tokens  []*Token
	byOwner map[raffle.Address]uint64
}

// Compile-time interface check.
var _ TokenStore = (*MemTokenStore)(nil)

// NewMemTokenStore creates an empty in-memory token store.
func NewMemTokenStore() *MemTokenStore {
	return &MemTokenStore{byOwner: make(map[raffle.Address]uint64)}
}

func (s *MemTokenStore) Mint(owner raffle.Address, mintedAt int64) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := &Token{ID: uint64(len(s.tokens)) + 1, Owner: owner, MintedAt: mintedAt}
	s.tokens = append(s.tokens, tok)
	s.byOwner[owner]++
	cp := *tok
	return &cp, nil
}

func (s *MemTokenStore) Get(id uint64) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || id > uint64(len(s.tokens)) {
		return nil, fmt.Errorf("%w: %d", ErrTokenNotFound, id)
	}
	cp := *s.tokens[id-1]
	return &cp, nil
}

func (s *MemTokenStore) CountByOwner(owner raffle.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byOwner[owner], nil
}

func (s *MemTokenStore) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.tokens)), nil
}
