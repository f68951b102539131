package state

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
)

type fakeReader struct {
	reserves amm.Reserves
	err      error
	account  common.Address
}

func (f *fakeReader) CurrentReserves(ctx context.Context) (amm.Reserves, error) {
	return f.reserves, f.err
}

func (f *fakeReader) Balances(ctx context.Context, account common.Address) (exchange.Balances, error) {
	f.account = account
	return exchange.Balances{Base: uint256.NewInt(1), Token: uint256.NewInt(2), Shares: uint256.NewInt(3)}, nil
}

type fakeGuard struct {
	err     error
	account common.Address
}

func (g fakeGuard) Verify(ctx context.Context) error { return g.err }
func (g fakeGuard) Account() common.Address         { return g.account }

func TestLoaderRefresh(t *testing.T) {
	acct := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	reader := &fakeReader{reserves: amm.NewReserves(100, 200, 100)}
	loader := NewLoader(reader, fakeGuard{account: acct}, NewStore(), nil)

	snap, err := loader.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Loaded)
	require.Equal(t, uint64(200), snap.Reserves.Token.Uint64())
	require.Equal(t, uint64(3), snap.Balances.Shares.Uint64())
	require.Equal(t, acct, reader.account)
}

func TestLoaderRefusesWithoutSession(t *testing.T) {
	wrong := errors.New("wrong network")
	reader := &fakeReader{reserves: amm.NewReserves(100, 200, 100)}
	loader := NewLoader(reader, fakeGuard{err: wrong}, NewStore(), nil)

	snap, err := loader.Refresh(context.Background())
	require.ErrorIs(t, err, wrong)
	require.False(t, snap.Loaded)
	require.ErrorIs(t, snap.Err, wrong)
	require.Equal(t, common.Address{}, reader.account)
}

func TestLoaderReadError(t *testing.T) {
	rpcErr := errors.New("rpc down")
	loader := NewLoader(&fakeReader{err: rpcErr}, fakeGuard{}, NewStore(), nil)

	_, err := loader.Refresh(context.Background())
	require.ErrorIs(t, err, rpcErr)
	require.ErrorIs(t, loader.Store().Current().Err, rpcErr)
}
