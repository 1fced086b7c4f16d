// Package prize awards winner badges: one sequentially numbered token per
// closed round, minted to the round's winner.
package prize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bitfsorg/raffle-go/raffle"
	log "github.com/sirupsen/logrus"
)

// Minter mints winner badge tokens. It implements raffle.PrizeIssuer.
type Minter struct {
	mu        sync.Mutex
	store     TokenStore
	baseURI   string
	maxSupply uint64
	now       func() time.Time
}

// Compile-time interface check.
var _ raffle.PrizeIssuer = (*Minter)(nil)

// MinterOption customizes a Minter.
type MinterOption func(*Minter)

// WithMaxSupply caps the number of tokens ever minted. Zero means unlimited.
func WithMaxSupply(n uint64) MinterOption {
	return func(m *Minter) { m.maxSupply = n }
}

// WithMintClock overrides the time source used to stamp tokens.
func WithMintClock(now func() time.Time) MinterOption {
	return func(m *Minter) { m.now = now }
}

// NewMinter creates a minter over store. Token URIs are baseURI followed by
// the token ID.
func NewMinter(store TokenStore, baseURI string, opts ...MinterOption) (*Minter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: token store", ErrNilParam)
	}
	m := &Minter{store: store, baseURI: baseURI, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AwardPrize mints one badge to winner.
func (m *Minter) AwardPrize(ctx context.Context, winner raffle.Address) error {
	_, err := m.Mint(ctx, winner)
	return err
}

// Mint mints the next token to to.
func (m *Minter) Mint(ctx context.Context, to raffle.Address) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to.IsZero() {
		return nil, ErrInvalidRecipient
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSupply > 0 {
		n, err := m.store.Count()
		if err != nil {
			return nil, fmt.Errorf("prize: count tokens: %w", err)
		}
		if n >= m.maxSupply {
			return nil, fmt.Errorf("%w: %d of %d minted", ErrSupplyExhausted, n, m.maxSupply)
		}
	}

	tok, err := m.store.Mint(to, m.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("prize: mint: %w", err)
	}
	log.WithFields(log.Fields{"token": tok.ID, "owner": to.String()}).Debug("prize: minted badge")
	return tok, nil
}

// OwnerOf returns the holder of token id.
func (m *Minter) OwnerOf(id uint64) (raffle.Address, error) {
	tok, err := m.store.Get(id)
	if err != nil {
		return raffle.Address{}, err
	}
	return tok.Owner, nil
}

// BalanceOf returns how many badges owner holds.
func (m *Minter) BalanceOf(owner raffle.Address) (uint64, error) {
	return m.store.CountByOwner(owner)
}

// TotalSupply returns the number of badges minted so far.
func (m *Minter) TotalSupply() (uint64, error) {
	return m.store.Count()
}

// TokenURI returns the metadata URI of an existing token.
func (m *Minter) TokenURI(id uint64) (string, error) {
	if _, err := m.store.Get(id); err != nil {
		return "", err
	}
	if m.baseURI == "" {
		return "", nil
	}
	return strings.TrimSuffix(m.baseURI, "/") + "/" + strconv.FormatUint(id, 10), nil
}
