package raffle

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// AddressSize is the length of a P2PKH public key hash.
const AddressSize = 20

// Address identifies a participant by its P2PKH public key hash.
type Address [AddressSize]byte

// ParseAddress decodes a Base58Check P2PKH address (mainnet or testnet).
func ParseAddress(s string) (Address, error) {
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	return AddressFromPubKeyHash([]byte(addr.PublicKeyHash))
}

// AddressFromPubKeyHash wraps a 20-byte public key hash.
func AddressFromPubKeyHash(pkh []byte) (Address, error) {
	var a Address
	if len(pkh) != AddressSize {
		return a, fmt.Errorf("%w: public key hash must be %d bytes, got %d", ErrInvalidAddress, AddressSize, len(pkh))
	}
	copy(a[:], pkh)
	return a, nil
}

// Encode renders the address in Base58Check form for the given network.
func (a Address) Encode(mainnet bool) (string, error) {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr.AddressString, nil
}

// IsZero reports whether the address is the all-zero hash.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the hex public key hash.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}
