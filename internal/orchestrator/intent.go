package orchestrator

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Action names a mutating operation.
type Action string

const (
	ActionSwap            Action = "swap"
	ActionAddLiquidity    Action = "add-liquidity"
	ActionRemoveLiquidity Action = "remove-liquidity"
)

// Intent is what the user asked for, in smallest units. For swaps exactly one
// of BaseAmount/TokenAmount is the input, selected by TokenInput.
type Intent struct {
	Action      Action
	TokenInput  bool
	BaseAmount  *uint256.Int
	TokenAmount *uint256.Int
	Shares      *uint256.Int
	MinOutput   *uint256.Int
}

// Validate checks the amounts the action needs are present.
func (i Intent) Validate() error {
	switch i.Action {
	case ActionSwap:
		in := i.BaseAmount
		if i.TokenInput {
			in = i.TokenAmount
		}
		if positive(in) {
			return nil
		}
		return fmt.Errorf("%w: swap input must be positive", ErrInvalidIntent)
	case ActionAddLiquidity:
		if positive(i.BaseAmount) {
			return nil
		}
		return fmt.Errorf("%w: deposit base amount must be positive", ErrInvalidIntent)
	case ActionRemoveLiquidity:
		if positive(i.Shares) {
			return nil
		}
		return fmt.Errorf("%w: shares to burn must be positive", ErrInvalidIntent)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidIntent, i.Action)
	}
}

// NeedsApproval reports whether the action spends the token and so must be
// preceded by an allowance for the exchange.
func (i Intent) NeedsApproval() bool {
	switch i.Action {
	case ActionSwap:
		return i.TokenInput
	case ActionAddLiquidity:
		return positive(i.TokenAmount)
	default:
		return false
	}
}

func (i Intent) minOutput() *uint256.Int {
	if i.MinOutput == nil {
		return new(uint256.Int)
	}
	return i.MinOutput
}

func positive(v *uint256.Int) bool {
	return v != nil && !v.IsZero()
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}
