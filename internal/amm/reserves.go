// Package amm holds the constant-product pricing and liquidity accounting used
// to preview trades against the exchange contract. Everything here is pure and
// works on 256-bit unsigned integers so results match the EVM bit for bit.
package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Asset names one of the balances tracked by the exchange.
type Asset int

const (
	// AssetBase is the native chain currency.
	AssetBase Asset = iota
	// AssetToken is the ERC-20 token paired against the base asset.
	AssetToken
	// AssetShare is the exchange's liquidity-share token.
	AssetShare
)

func (a Asset) String() string {
	switch a {
	case AssetBase:
		return "base"
	case AssetToken:
		return "token"
	case AssetShare:
		return "share"
	default:
		return fmt.Sprintf("asset(%d)", int(a))
	}
}

// Reserves is a point-in-time snapshot of the pool. It is never mutated
// locally; a fresh snapshot is read after every confirmed mutation.
type Reserves struct {
	Base        *uint256.Int
	Token       *uint256.Int
	TotalShares *uint256.Int
	// BlockNumber is the block the snapshot was read at, zero when unknown.
	BlockNumber uint64
}

// NewReserves builds a snapshot from plain integers.
func NewReserves(base, token, totalShares uint64) Reserves {
	return Reserves{
		Base:        uint256.NewInt(base),
		Token:       uint256.NewInt(token),
		TotalShares: uint256.NewInt(totalShares),
	}
}

// IsEmpty reports whether the pool holds no liquidity.
func (r Reserves) IsEmpty() bool {
	return isZero(r.TotalShares)
}

// Clone returns a deep copy.
func (r Reserves) Clone() Reserves {
	return Reserves{
		Base:        clone(r.Base),
		Token:       clone(r.Token),
		TotalShares: clone(r.TotalShares),
		BlockNumber: r.BlockNumber,
	}
}

func (r Reserves) String() string {
	return fmt.Sprintf("Reserves{base: %s, token: %s, shares: %s, block: %d}",
		dec(r.Base), dec(r.Token), dec(r.TotalShares), r.BlockNumber)
}

func isZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
