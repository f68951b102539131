// Package units converts between whole-unit decimal strings ("0.1") and the
// smallest-unit integers the contracts work in.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrNegative  = errors.New("amount must not be negative")
	ErrPrecision = errors.New("amount has more decimal places than the asset supports")
	ErrTooLarge  = errors.New("amount does not fit in 256 bits")
)

// ParseUnits converts a decimal string into smallest units for an asset with
// the given decimals. Rounding is never applied; excess precision is an error.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse amount %q: %w", s, ErrNegative)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("parse amount %q with %d decimals: %w", s, decimals, ErrPrecision)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("parse amount %q: %w", s, ErrTooLarge)
	}
	return out, nil
}

// FormatUnits renders smallest units as a whole-unit decimal string without
// trailing zeros.
func FormatUnits(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return toDecimal(v, decimals).String()
}

// FormatFixed renders smallest units rounded to places decimal places.
func FormatFixed(v *uint256.Int, decimals uint8, places int32) string {
	if v == nil {
		v = new(uint256.Int)
	}
	return toDecimal(v, decimals).StringFixed(places)
}

// Price returns how many quote units one base unit buys, given both reserves
// in smallest units. An empty side yields zero.
func Price(baseReserve, tokenReserve *uint256.Int, baseDecimals, tokenDecimals uint8, places int32) string {
	if baseReserve == nil || tokenReserve == nil || baseReserve.IsZero() {
		return decimal.Zero.StringFixed(places)
	}
	base := toDecimal(baseReserve, baseDecimals)
	token := toDecimal(tokenReserve, tokenDecimals)
	return token.DivRound(base, places+2).StringFixed(places)
}

func toDecimal(v *uint256.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals))
}
