// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest supported precision. 10^18 base units per coin
// still leaves room for eighteen whole coins in a uint64.
const MaxDecimals = 18

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseAmount converts a decimal coin amount such as "1.5" into base units
// with the given precision. Amounts with more fractional digits than
// decimals are rejected rather than rounded.
func ParseAmount(s string, decimals int32) (uint64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	units := d.Shift(decimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, decimals)
	}
	if units.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %q", ErrAmountOutOfRange, s)
	}
	return units.BigInt().Uint64(), nil
}

// FormatAmount renders base units as a decimal coin amount without trailing zeros.
func FormatAmount(units uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals).String()
}
