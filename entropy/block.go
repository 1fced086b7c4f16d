package entropy

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/bitfsorg/raffle-go/network"
	"golang.org/x/crypto/sha3"
)

// Block derives entropy from a block header near the chain tip:
//
//	keccak256(blockHash || height || timestamp || salt)
//
// The result is public once the block is, and a block producer can grind the
// header to bias it. Depth trades latency for resistance to tip reorgs.
type Block struct {
	src   network.BlockSource
	salt  []byte
	depth uint64
}

// BlockOption customizes a Block source.
type BlockOption func(*Block)

// WithDepth selects the block depth confirmations below the tip.
func WithDepth(depth uint64) BlockOption {
	return func(b *Block) { b.depth = depth }
}

// WithSalt mixes salt into every digest, so two raffles closing on the same
// block draw different values.
func WithSalt(salt []byte) BlockOption {
	return func(b *Block) { b.salt = append([]byte(nil), salt...) }
}

// NewBlock creates a block entropy source reading from src.
func NewBlock(src network.BlockSource, opts ...BlockOption) (*Block, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: block source", ErrNilParam)
	}
	b := &Block{src: src}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Entropy fetches the selected header, checks that it hashes to the block the
// node named, and returns the digest as a non-negative integer.
func (b *Block) Entropy(ctx context.Context) (*big.Int, error) {
	tip, err := b.src.GetBestBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("entropy: chain tip: %w", err)
	}
	if tip < b.depth {
		return nil, fmt.Errorf("%w: tip %d, depth %d", ErrChainTooShort, tip, b.depth)
	}
	height := tip - b.depth

	blockHash, err := b.src.GetBlockHash(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("entropy: block hash at %d: %w", height, err)
	}
	raw, err := b.src.GetBlockHeader(ctx, blockHash)
	if err != nil {
		return nil, fmt.Errorf("entropy: block header %s: %w", blockHash, err)
	}
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(h.DisplayHash(), blockHash) {
		return nil, fmt.Errorf("%w: node named %s, header hashes to %s", ErrHeaderMismatch, blockHash, h.DisplayHash())
	}

	return new(big.Int).SetBytes(blockDigest(h, height, b.salt)), nil
}

func blockDigest(h *BlockHeader, height uint64, salt []byte) []byte {
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[0:8], height)
	binary.BigEndian.PutUint32(buf[8:12], h.Timestamp)

	return keccak256(h.Hash, buf[:], salt)
}

func keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}
