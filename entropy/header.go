package entropy

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

const (
	// BlockHeaderSize is the size of a serialized block header in bytes.
	BlockHeaderSize = 80

	// HashSize is the size of a double-SHA256 hash in bytes.
	HashSize = 32
)

// BlockHeader holds the header fields that feed block entropy.
type BlockHeader struct {
	Version    int32
	PrevBlock  []byte
	MerkleRoot []byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
	Hash       []byte // double-SHA256 of the raw header, internal byte order
}

// ParseHeader decodes an 80-byte wire header and computes its hash.
//
// Layout: version(4) | prevBlock(32) | merkleRoot(32) | timestamp(4) | bits(4) | nonce(4)
func ParseHeader(data []byte) (*BlockHeader, error) {
	if len(data) != BlockHeaderSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, BlockHeaderSize, len(data))
	}

	h := &BlockHeader{
		Version:    int32(binary.LittleEndian.Uint32(data[0:4])),
		PrevBlock:  append([]byte(nil), data[4:36]...),
		MerkleRoot: append([]byte(nil), data[36:68]...),
		Timestamp:  binary.LittleEndian.Uint32(data[68:72]),
		Bits:       binary.LittleEndian.Uint32(data[72:76]),
		Nonce:      binary.LittleEndian.Uint32(data[76:80]),
		Hash:       bsvhash.Sha256d(data),
	}
	return h, nil
}

// DisplayHash returns the hash in the byte-reversed hex form used by node RPCs
// and block explorers.
func (h *BlockHeader) DisplayHash() string {
	rev := make([]byte, len(h.Hash))
	for i, b := range h.Hash {
		rev[len(h.Hash)-1-i] = b
	}
	return hex.EncodeToString(rev)
}
