package amm

import (
	"github.com/holiman/uint256"
)

// Deposit is a previewed liquidity deposit.
type Deposit struct {
	Base   *uint256.Int
	Token  *uint256.Int
	Shares *uint256.Int
	// Initial is set when the deposit seeds an empty pool and fixes the price.
	Initial bool
}

// Withdrawal is a previewed redemption of liquidity shares.
type Withdrawal struct {
	Shares *uint256.Int
	Base   *uint256.Int
	Token  *uint256.Int
}

// PairedTokenForDeposit returns the token amount that must accompany a base
// deposit to keep the pool ratio, rounded up so the contract's
// tokenAmount >= base * tokenReserve / baseReserve check always passes.
func PairedTokenForDeposit(base *uint256.Int, r Reserves) (*uint256.Int, error) {
	if r.IsEmpty() || isZero(r.Base) {
		return nil, ErrZeroReserve
	}
	if isZero(base) {
		return new(uint256.Int), nil
	}
	return mulDivUp(base, r.Token, r.Base)
}

// SharesForDeposit returns the liquidity shares minted for a base deposit.
// Seeding an empty pool mints the exchange's whole base balance after the
// deposit, which includes any base sent to it before the first deposit.
func SharesForDeposit(base *uint256.Int, r Reserves) (*uint256.Int, error) {
	if isZero(base) {
		return new(uint256.Int), nil
	}
	if r.IsEmpty() {
		minted, overflow := new(uint256.Int).AddOverflow(base, clone(r.Base))
		if overflow {
			return nil, ErrOverflow
		}
		return minted, nil
	}
	if isZero(r.Base) {
		return nil, ErrZeroReserve
	}
	return mulDiv(base, r.TotalShares, r.Base)
}

// PreviewDeposit combines PairedTokenForDeposit and SharesForDeposit. For an
// empty pool the caller's token amount is used as-is and must be non-zero;
// otherwise token is ignored and derived from the reserves.
func PreviewDeposit(base, token *uint256.Int, r Reserves) (Deposit, error) {
	shares, err := SharesForDeposit(base, r)
	if err != nil {
		return Deposit{}, err
	}

	if r.IsEmpty() {
		if isZero(token) {
			return Deposit{}, ErrTokenAmountRequired
		}
		return Deposit{Base: clone(base), Token: token.Clone(), Shares: shares, Initial: true}, nil
	}

	paired, err := PairedTokenForDeposit(base, r)
	if err != nil {
		return Deposit{}, err
	}
	return Deposit{Base: clone(base), Token: paired, Shares: shares}, nil
}

// AmountsForWithdrawal returns the proportional base and token amounts
// redeemed by burning shares, both rounded down.
func AmountsForWithdrawal(shares *uint256.Int, r Reserves) (Withdrawal, error) {
	w := Withdrawal{Shares: clone(shares), Base: new(uint256.Int), Token: new(uint256.Int)}
	if isZero(shares) {
		return w, nil
	}
	if r.IsEmpty() {
		return Withdrawal{}, ErrInsufficientShares
	}
	if shares.Gt(r.TotalShares) {
		return Withdrawal{}, ErrInsufficientShares
	}

	base, err := mulDiv(shares, r.Base, r.TotalShares)
	if err != nil {
		return Withdrawal{}, err
	}
	token, err := mulDiv(shares, r.Token, r.TotalShares)
	if err != nil {
		return Withdrawal{}, err
	}
	w.Base, w.Token = base, token
	return w, nil
}

// CheckShareBalance fails with ErrInsufficientShares when burning more than held.
func CheckShareBalance(shares, balance *uint256.Int) error {
	if isZero(shares) {
		return nil
	}
	if balance == nil || shares.Gt(balance) {
		return ErrInsufficientShares
	}
	return nil
}

func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, d), nil
}

func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	rem := new(uint256.Int).Mod(product, d)
	q := product.Div(product, d)
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}
