package prize

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitfsorg/raffle-go/raffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = raffle.Address{0xA1}
	bob   = raffle.Address{0xB2}
)

func storesUnderTest(t *testing.T) map[string]TokenStore {
	t.Helper()
	rs, err := raffle.OpenBoltStore(filepath.Join(t.TempDir(), "raffle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	bolt, err := NewBoltTokenStore(rs.DB())
	require.NoError(t, err)

	return map[string]TokenStore{
		"mem":  NewMemTokenStore(),
		"bolt": bolt,
	}
}

func TestMinter_MintSequentialIDs(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			at := time.Unix(1_700_000_000, 0)
			m, err := NewMinter(store, "https://badges.example/raffle/", WithMintClock(func() time.Time { return at }))
			require.NoError(t, err)
			ctx := context.Background()

			first, err := m.Mint(ctx, alice)
			require.NoError(t, err)
			second, err := m.Mint(ctx, bob)
			require.NoError(t, err)
			third, err := m.Mint(ctx, alice)
			require.NoError(t, err)

			assert.Equal(t, uint64(1), first.ID)
			assert.Equal(t, uint64(2), second.ID)
			assert.Equal(t, uint64(3), third.ID)
			assert.Equal(t, at.Unix(), first.MintedAt)

			owner, err := m.OwnerOf(2)
			require.NoError(t, err)
			assert.Equal(t, bob, owner)

			n, err := m.BalanceOf(alice)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), n)

			supply, err := m.TotalSupply()
			require.NoError(t, err)
			assert.Equal(t, uint64(3), supply)

			uri, err := m.TokenURI(3)
			require.NoError(t, err)
			assert.Equal(t, "https://badges.example/raffle/3", uri)
		})
	}
}

func TestMinter_UnknownToken(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			m, err := NewMinter(store, "")
			require.NoError(t, err)

			_, err = m.OwnerOf(1)
			assert.ErrorIs(t, err, ErrTokenNotFound)
			_, err = m.TokenURI(0)
			assert.ErrorIs(t, err, ErrTokenNotFound)

			n, err := m.BalanceOf(alice)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestMinter_Rejections(t *testing.T) {
	m, err := NewMinter(NewMemTokenStore(), "", WithMaxSupply(1))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Mint(ctx, raffle.Address{})
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = m.Mint(ctx, alice)
	require.NoError(t, err)
	_, err = m.Mint(ctx, bob)
	assert.ErrorIs(t, err, ErrSupplyExhausted)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewMinter(nil, "")
	assert.ErrorIs(t, err, ErrNilParam)
	m2, err := NewMinter(NewMemTokenStore(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, m2.AwardPrize(cctx, alice), context.Canceled)
}

func TestMinter_AwardsRaffleWinners(t *testing.T) {
	authority := raffle.Address{0xF0}
	m, err := NewMinter(NewMemTokenStore(), "", WithMaxSupply(1))
	require.NoError(t, err)

	seed := int64(0)
	entropy := raffle.EntropyFunc(func(context.Context) (*big.Int, error) { return big.NewInt(seed), nil })
	r, err := raffle.New(raffle.Config{EntryFee: 5, Authority: authority}, entropy, raffle.NewBalances(),
		raffle.WithPrizeIssuer(m))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Enter(ctx, alice, 5))
	require.NoError(t, r.Enter(ctx, bob, 5))
	res, err := r.CloseAndSelectWinner(ctx, authority)
	require.NoError(t, err)
	assert.Equal(t, alice, res.Winner)

	owner, err := m.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	// Supply is exhausted: the second close still succeeds without a badge.
	seed = 1
	require.NoError(t, r.StartNextRound(ctx, authority))
	require.NoError(t, r.Enter(ctx, alice, 5))
	require.NoError(t, r.Enter(ctx, bob, 5))
	res, err = r.CloseAndSelectWinner(ctx, authority)
	require.NoError(t, err)
	assert.Equal(t, bob, res.Winner)
	assert.Equal(t, uint64(5), r.RefundBalance(alice))

	n, err := m.BalanceOf(bob)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBoltTokenStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.db")
	rs, err := raffle.OpenBoltStore(path)
	require.NoError(t, err)
	store, err := NewBoltTokenStore(rs.DB())
	require.NoError(t, err)
	_, err = store.Mint(alice, 1)
	require.NoError(t, err)
	require.NoError(t, rs.Close())

	rs2, err := raffle.OpenBoltStore(path)
	require.NoError(t, err)
	defer rs2.Close()
	store2, err := NewBoltTokenStore(rs2.DB())
	require.NoError(t, err)

	tok, err := store2.Mint(bob, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tok.ID)
	got, err := store2.Get(1)
	require.NoError(t, err)
	assert.Equal(t, alice, got.Owner)
}

func TestNewBoltTokenStore_NilDB(t *testing.T) {
	_, err := NewBoltTokenStore(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}
