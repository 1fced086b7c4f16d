package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not connect to the node.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAuthFailed indicates the node rejected the RPC credentials.
	ErrAuthFailed = errors.New("network: authentication failed")

	// ErrBlockNotFound indicates the requested block height or hash is unknown to the node.
	ErrBlockNotFound = errors.New("network: block not found")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrMissingConfig indicates no RPC endpoint could be resolved.
	ErrMissingConfig = errors.New("network: missing RPC configuration")
)
