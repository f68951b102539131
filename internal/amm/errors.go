package amm

import "errors"

var (
	// ErrEmptyPool is returned when quoting against a pool with a zero reserve on either side.
	ErrEmptyPool = errors.New("empty pool")
	// ErrZeroReserve is returned when a ratio-preserving deposit is computed against an empty pool.
	ErrZeroReserve = errors.New("zero reserve")
	// ErrInsufficientShares is returned when more liquidity shares are burned than are held or exist.
	ErrInsufficientShares = errors.New("insufficient liquidity shares")
	// ErrOverflow is returned when an intermediate product does not fit in 256 bits.
	// The contract reverts in the same situation.
	ErrOverflow = errors.New("uint256 overflow")
	// ErrTokenAmountRequired is returned when the first deposit does not name a token amount.
	ErrTokenAmountRequired = errors.New("token amount required for initial deposit")
	ErrInvalidFee          = errors.New("invalid fee")
)
