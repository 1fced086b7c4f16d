package entropy

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("entropy: nil parameter")

	// ErrInvalidValue indicates a fixed entropy value could not be parsed.
	ErrInvalidValue = errors.New("entropy: invalid value")

	// ErrSequenceExhausted indicates a Sequence has handed out every value.
	ErrSequenceExhausted = errors.New("entropy: sequence exhausted")

	// ErrInvalidHeader indicates a block header is malformed.
	ErrInvalidHeader = errors.New("entropy: invalid block header")

	// ErrHeaderMismatch indicates the node returned a header that does not hash to the requested block.
	ErrHeaderMismatch = errors.New("entropy: header does not match block hash")

	// ErrChainTooShort indicates the chain is not deep enough for the configured confirmation depth.
	ErrChainTooShort = errors.New("entropy: chain too short")

	// ErrBeaconUnavailable indicates the beacon record could not be fetched.
	ErrBeaconUnavailable = errors.New("entropy: beacon unavailable")

	// ErrDNSSECValidationFailed indicates the resolver did not authenticate the beacon record.
	ErrDNSSECValidationFailed = errors.New("entropy: DNSSEC validation failed")

	// ErrInvalidBeaconValue indicates the beacon record does not hold exactly one usable value.
	ErrInvalidBeaconValue = errors.New("entropy: invalid beacon value")
)
