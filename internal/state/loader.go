package state

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
)

// Reader is the read-only ledger capability.
type Reader interface {
	CurrentReserves(ctx context.Context) (amm.Reserves, error)
	Balances(ctx context.Context, account common.Address) (exchange.Balances, error)
}

// Guard is the session check every read goes through.
type Guard interface {
	Verify(ctx context.Context) error
	Account() common.Address
}

// Loader refreshes a Store from the ledger.
type Loader struct {
	reader Reader
	guard  Guard
	store  *Store
	logger *zap.Logger
}

// NewLoader wires a loader. A nil logger discards output.
func NewLoader(reader Reader, guard Guard, store *Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reader: reader, guard: guard, store: store, logger: logger}
}

// Store returns the store the loader writes to.
func (l *Loader) Store() *Store { return l.store }

// Refresh verifies the session, then reads reserves and the account's
// balances and publishes them as one snapshot.
func (l *Loader) Refresh(ctx context.Context) (Snapshot, error) {
	if err := l.guard.Verify(ctx); err != nil {
		return l.store.Dispatch(RefreshFailed{Err: err}), err
	}

	var (
		reserves amm.Reserves
		balances exchange.Balances
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := l.reader.CurrentReserves(gctx)
		if err != nil {
			return fmt.Errorf("read reserves: %w", err)
		}
		reserves = r
		return nil
	})
	g.Go(func() error {
		b, err := l.reader.Balances(gctx, l.guard.Account())
		if err != nil {
			return fmt.Errorf("read balances: %w", err)
		}
		balances = b
		return nil
	})
	if err := g.Wait(); err != nil {
		l.logger.Warn("refresh failed", zap.Error(err))
		return l.store.Dispatch(RefreshFailed{Err: err}), err
	}

	snap := l.store.Dispatch(Refreshed{Reserves: reserves, Balances: balances})
	l.logger.Debug("state refreshed", zap.Stringer("snapshot", snap))
	return snap, nil
}
