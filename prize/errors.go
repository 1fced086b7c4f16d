package prize

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("prize: nil parameter")

	// ErrTokenNotFound indicates no token with the requested ID has been minted.
	ErrTokenNotFound = errors.New("prize: token not found")

	// ErrInvalidRecipient indicates a mint to the zero address.
	ErrInvalidRecipient = errors.New("prize: invalid recipient")

	// ErrSupplyExhausted indicates the minter reached its maximum supply.
	ErrSupplyExhausted = errors.New("prize: supply exhausted")
)
