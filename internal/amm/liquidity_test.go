package amm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestPairedTokenForDepositRoundsUp(t *testing.T) {
	r := NewReserves(3, 10, 3)

	got, err := PairedTokenForDeposit(uint256.NewInt(10), r)
	require.NoError(t, err)
	// 10 * 10 / 3 = 33.33
	require.Equal(t, uint64(34), got.Uint64())

	got, err = PairedTokenForDeposit(uint256.NewInt(6), r)
	require.NoError(t, err)
	require.Equal(t, uint64(20), got.Uint64())
}

func TestPairedTokenForDepositEmptyPool(t *testing.T) {
	_, err := PairedTokenForDeposit(uint256.NewInt(10), NewReserves(0, 0, 0))
	require.ErrorIs(t, err, ErrZeroReserve)
}

func TestPreviewDeposit(t *testing.T) {
	d, err := PreviewDeposit(uint256.NewInt(500), uint256.NewInt(2000), NewReserves(0, 0, 0))
	require.NoError(t, err)
	require.True(t, d.Initial)
	require.Equal(t, uint64(2000), d.Token.Uint64())
	require.Equal(t, uint64(500), d.Shares.Uint64())

	_, err = PreviewDeposit(uint256.NewInt(500), nil, NewReserves(0, 0, 0))
	require.ErrorIs(t, err, ErrTokenAmountRequired)

	d, err = PreviewDeposit(uint256.NewInt(100), uint256.NewInt(1), NewReserves(1000, 4000, 500))
	require.NoError(t, err)
	require.False(t, d.Initial)
	require.Equal(t, uint64(400), d.Token.Uint64())
	require.Equal(t, uint64(50), d.Shares.Uint64())
}

func TestFirstDepositMintsWholeBaseBalance(t *testing.T) {
	// base already held by the exchange before anyone provided liquidity
	stray := Reserves{Base: uint256.NewInt(7), Token: new(uint256.Int), TotalShares: new(uint256.Int)}

	shares, err := SharesForDeposit(uint256.NewInt(500), stray)
	require.NoError(t, err)
	require.Equal(t, uint64(507), shares.Uint64())

	d, err := PreviewDeposit(uint256.NewInt(500), uint256.NewInt(2000), stray)
	require.NoError(t, err)
	require.True(t, d.Initial)
	require.Equal(t, uint64(507), d.Shares.Uint64())

	full := new(uint256.Int).SubUint64(new(uint256.Int), 1)
	_, err = SharesForDeposit(uint256.NewInt(1), Reserves{Base: full, Token: new(uint256.Int), TotalShares: new(uint256.Int)})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestWithdrawEverything(t *testing.T) {
	cases := []Reserves{
		NewReserves(1000, 1000, 1000),
		NewReserves(1_000_003, 7_777_777, 999_999),
		NewReserves(1, 1_000_000_000_000, 3),
	}
	for _, r := range cases {
		w, err := AmountsForWithdrawal(r.TotalShares, r)
		require.NoError(t, err)
		require.True(t, w.Base.Eq(r.Base), "base %s != %s", w.Base, r.Base)
		require.True(t, w.Token.Eq(r.Token), "token %s != %s", w.Token, r.Token)
	}
}

func TestWithdrawRoundsDown(t *testing.T) {
	w, err := AmountsForWithdrawal(uint256.NewInt(1), NewReserves(10, 20, 3))
	require.NoError(t, err)
	require.Equal(t, uint64(3), w.Base.Uint64())
	require.Equal(t, uint64(6), w.Token.Uint64())
}

func TestWithdrawTooManyShares(t *testing.T) {
	_, err := AmountsForWithdrawal(uint256.NewInt(11), NewReserves(10, 20, 10))
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, err = AmountsForWithdrawal(uint256.NewInt(1), NewReserves(0, 0, 0))
	require.ErrorIs(t, err, ErrInsufficientShares)

	require.ErrorIs(t, CheckShareBalance(uint256.NewInt(5), uint256.NewInt(4)), ErrInsufficientShares)
	require.NoError(t, CheckShareBalance(uint256.NewInt(4), uint256.NewInt(4)))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	cases := []struct {
		reserves Reserves
		base     uint64
	}{
		{NewReserves(1000, 1000, 1000), 100},
		{NewReserves(1000, 3000, 1000), 7},
		{NewReserves(1_000_003, 7_777_777, 999_999), 12_345},
		{NewReserves(5_000_000_000, 17, 2_500_000_000), 1_000_000},
		{NewReserves(999, 1_000_000_000_000, 1_000_000), 333},
	}

	for _, tc := range cases {
		r := tc.reserves
		base := uint256.NewInt(tc.base)

		d, err := PreviewDeposit(base, nil, r)
		require.NoError(t, err)

		after := Reserves{
			Base:        new(uint256.Int).Add(r.Base, d.Base),
			Token:       new(uint256.Int).Add(r.Token, d.Token),
			TotalShares: new(uint256.Int).Add(r.TotalShares, d.Shares),
		}
		w, err := AmountsForWithdrawal(d.Shares, after)
		require.NoError(t, err)

		// never more than was put in
		require.False(t, w.Base.Gt(d.Base))
		require.False(t, w.Token.Gt(d.Token))

		// at most one share of value plus rounding lost on each side
		shareBase := new(uint256.Int).Div(after.Base, after.TotalShares).Uint64()
		shareToken := new(uint256.Int).Div(after.Token, after.TotalShares).Uint64()
		require.LessOrEqual(t, d.Base.Uint64()-w.Base.Uint64(), shareBase+2)
		require.LessOrEqual(t, d.Token.Uint64()-w.Token.Uint64(), shareToken+3)
	}
}

func TestRoundTripExactWhenSharesTrackBase(t *testing.T) {
	r := NewReserves(1000, 2500, 1000)
	d, err := PreviewDeposit(uint256.NewInt(40), nil, r)
	require.NoError(t, err)
	require.Equal(t, uint64(100), d.Token.Uint64())
	require.Equal(t, uint64(40), d.Shares.Uint64())

	after := NewReserves(1040, 2600, 1040)
	w, err := AmountsForWithdrawal(d.Shares, after)
	require.NoError(t, err)
	require.Equal(t, uint64(40), w.Base.Uint64())
	require.Equal(t, uint64(100), w.Token.Uint64())
}
