// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidListenAddr indicates the API listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidDecimals indicates the amount precision is out of range.
	ErrInvalidDecimals = errors.New("config: decimals must be between 0 and 18")

	// ErrInvalidAmount indicates an amount is not a non-negative decimal representable in base units.
	ErrInvalidAmount = errors.New("config: invalid amount")

	// ErrAmountOutOfRange indicates an amount does not fit in 64-bit base units.
	ErrAmountOutOfRange = errors.New("config: amount out of range")

	// ErrInvalidAuthority indicates the authority is not a valid address.
	ErrInvalidAuthority = errors.New("config: invalid authority address")

	// ErrMissingAuthority indicates an operation needs an authority and none is configured.
	ErrMissingAuthority = errors.New("config: authority must be set")
)
