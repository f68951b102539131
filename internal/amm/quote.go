package amm

import (
	"github.com/holiman/uint256"
)

// Quote is a derived swap preview. It is recomputed whenever the input or the
// reserves change and is never persisted.
type Quote struct {
	Input     *uint256.Int
	Output    *uint256.Int
	BaseInput bool
}

// Quoter computes constant-product swap outputs for a fixed fee.
type Quoter struct {
	fee Fee
}

// NewQuoter returns a Quoter for the given fee.
func NewQuoter(fee Fee) (*Quoter, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	return &Quoter{fee: fee}, nil
}

// Fee returns the configured fee.
func (q *Quoter) Fee() Fee {
	return q.fee
}

// Quote previews swapping amountIn of the base asset (baseInput) or the token
// against the given reserves. A zero input yields a zero output without
// touching the reserves.
func (q *Quoter) Quote(amountIn *uint256.Int, baseInput bool, r Reserves) (Quote, error) {
	quote := Quote{Input: clone(amountIn), Output: new(uint256.Int), BaseInput: baseInput}
	if isZero(amountIn) {
		return quote, nil
	}

	inputReserve, outputReserve := r.Token, r.Base
	if baseInput {
		inputReserve, outputReserve = r.Base, r.Token
	}
	if isZero(inputReserve) || isZero(outputReserve) {
		return Quote{}, ErrEmptyPool
	}

	out, err := GetAmountOut(amountIn, inputReserve, outputReserve, q.fee)
	if err != nil {
		return Quote{}, err
	}
	quote.Output = out
	return quote, nil
}

// GetAmountOut mirrors the exchange contract:
//
//	inputWithFee = amountIn * (D - N)
//	out = inputWithFee * outputReserve / (inputReserve * D + inputWithFee)
//
// Only the final division truncates; the fee is never divided out of the input
// on its own.
func GetAmountOut(amountIn, inputReserve, outputReserve *uint256.Int, fee Fee) (*uint256.Int, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	if isZero(amountIn) {
		return new(uint256.Int), nil
	}
	if isZero(inputReserve) || isZero(outputReserve) {
		return nil, ErrEmptyPool
	}

	inputWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(fee.keep()))
	if overflow {
		return nil, ErrOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(inputWithFee, outputReserve)
	if overflow {
		return nil, ErrOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(inputReserve, uint256.NewInt(fee.Denominator))
	if overflow {
		return nil, ErrOverflow
	}
	if _, overflow = denominator.AddOverflow(denominator, inputWithFee); overflow {
		return nil, ErrOverflow
	}
	return numerator.Div(numerator, denominator), nil
}

// MinOutput applies a slippage tolerance in basis points to a previewed output.
func MinOutput(output *uint256.Int, slippageBps uint64) *uint256.Int {
	if isZero(output) {
		return new(uint256.Int)
	}
	if slippageBps == 0 {
		return output.Clone()
	}
	if slippageBps >= 10_000 {
		return new(uint256.Int)
	}
	scaled, overflow := new(uint256.Int).MulOverflow(output, uint256.NewInt(10_000-slippageBps))
	if overflow {
		// divide first; loses at most one unit of precision on absurdly large values
		scaled = new(uint256.Int).Div(output, uint256.NewInt(10_000))
		return scaled.Mul(scaled, uint256.NewInt(10_000-slippageBps))
	}
	return scaled.Div(scaled, uint256.NewInt(10_000))
}
