// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bitfsorg/raffle-go/raffle"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid. An empty
// authority is allowed here; RaffleConfig requires one.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	fee, err := ParseAmount(cfg.EntryFee, cfg.Decimals)
	if err != nil {
		return fmt.Errorf("config: entryfee: %w", err)
	}
	if fee == 0 {
		return fmt.Errorf("config: entryfee: %w: must be positive", ErrInvalidAmount)
	}

	if cfg.Authority != "" {
		if _, err := raffle.ParseAddress(cfg.Authority); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAuthority, err)
		}
	}
	return nil
}

// RaffleConfig converts the raffle parameters into a raffle.Config.
func RaffleConfig(cfg Config) (raffle.Config, error) {
	if err := ValidateConfig(cfg); err != nil {
		return raffle.Config{}, err
	}
	if cfg.Authority == "" {
		return raffle.Config{}, ErrMissingAuthority
	}
	fee, err := ParseAmount(cfg.EntryFee, cfg.Decimals)
	if err != nil {
		return raffle.Config{}, err
	}
	authority, err := raffle.ParseAddress(cfg.Authority)
	if err != nil {
		return raffle.Config{}, fmt.Errorf("%w: %w", ErrInvalidAuthority, err)
	}
	return raffle.Config{EntryFee: fee, Authority: authority}, nil
}
