package raffle

import "errors"

var (
	// ErrRoundClosed indicates an entry was attempted while no round is open.
	ErrRoundClosed = errors.New("raffle: round is closed")

	// ErrIncorrectFee indicates the paid amount differs from the entry fee.
	ErrIncorrectFee = errors.New("raffle: incorrect entry fee")

	// ErrNotAuthorized indicates the caller is not the raffle authority.
	ErrNotAuthorized = errors.New("raffle: caller is not the authority")

	// ErrRoundAlreadyClosed indicates a close was attempted on a closed round.
	ErrRoundAlreadyClosed = errors.New("raffle: round already closed")

	// ErrRoundAlreadyOpen indicates a new round was requested while one is open.
	ErrRoundAlreadyOpen = errors.New("raffle: round already open")

	// ErrNoParticipants indicates a close was attempted on an empty round.
	ErrNoParticipants = errors.New("raffle: round has no participants")

	// ErrNoRefundAvailable indicates the address is owed nothing.
	ErrNoRefundAvailable = errors.New("raffle: no refund available")

	// ErrInvalidRoundIndex indicates a result lookup past the last closed round.
	ErrInvalidRoundIndex = errors.New("raffle: invalid round index")

	// ErrEntropyUnavailable indicates the entropy source failed.
	ErrEntropyUnavailable = errors.New("raffle: entropy unavailable")

	// ErrInvalidEntropy indicates the entropy source returned no value.
	ErrInvalidEntropy = errors.New("raffle: invalid entropy value")

	// ErrTransferFailed indicates the payer could not transfer a refund.
	ErrTransferFailed = errors.New("raffle: value transfer failed")

	// ErrAmountOverflow indicates an accounting total would exceed uint64.
	ErrAmountOverflow = errors.New("raffle: amount overflow")

	// ErrConservationViolated indicates the ledger totals do not balance.
	ErrConservationViolated = errors.New("raffle: fund conservation violated")

	// ErrInvalidConfig indicates the raffle configuration is unusable.
	ErrInvalidConfig = errors.New("raffle: invalid configuration")

	// ErrConfigMismatch indicates stored state was created with a different configuration.
	ErrConfigMismatch = errors.New("raffle: stored state does not match configuration")

	// ErrInvalidAddress indicates an address string could not be decoded.
	ErrInvalidAddress = errors.New("raffle: invalid address")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("raffle: nil parameter")

	// ErrStateNotFound indicates the store holds no raffle state yet.
	ErrStateNotFound = errors.New("raffle: state not found")
)
