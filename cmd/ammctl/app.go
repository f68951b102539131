package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammclient/internal/amm"
	"ammclient/internal/chain"
	"ammclient/internal/config"
	"ammclient/internal/exchange"
	"ammclient/internal/model"
	"ammclient/internal/session"
	"ammclient/internal/state"
)

type sessionMode int

const (
	// network only; no account needed
	modeNetwork sessionMode = iota
	modeAccount
	modeSigner
)

type app struct {
	ctx     context.Context
	cfg     config.Config
	logger  *zap.Logger
	client  *chain.Client
	oracle  *exchange.Oracle
	quoter  *amm.Quoter
	session *session.Session
	store   *state.Store
	loader  *state.Loader
	meta    model.TokenMeta
	cleanup []func()
}

func newApp(cmd *cobra.Command, mode sessionMode) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.onClose(func() { _ = logger.Sync() })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a.ctx = ctx
	a.onClose(stop)

	quoter, err := amm.NewQuoter(cfg.Fee())
	if err != nil {
		a.close()
		return nil, err
	}
	a.quoter = quoter

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client
	a.onClose(client.Close)

	if err := a.connect(mode); err != nil {
		a.close()
		return nil, err
	}

	oracle, err := exchange.NewOracle(client, cfg.ExchangeAddress(), cfg.TokenAddress(), exchange.OracleOptions{
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		DefaultDecimals: cfg.TokenDecimals,
		Logger:          logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.oracle = oracle

	if paired, err := oracle.PairedToken(ctx); err != nil {
		logger.Debug("paired token read failed", zap.Error(err))
	} else if paired != cfg.TokenAddress() {
		a.close()
		return nil, fmt.Errorf("exchange %s is paired with %s, not %s", cfg.Exchange, paired.Hex(), cfg.Token)
	}

	meta, err := oracle.TokenMeta(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.meta = meta

	a.store = state.NewStore()
	a.store.Subscribe(snapshotLogger(logger))
	if a.session != nil {
		a.loader = state.NewLoader(oracle, a.session, a.store, logger)
	}

	logger.Debug("session ready",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("exchange", cfg.Exchange),
		zap.String("token", cfg.Token),
		zap.String("account", a.account().Hex()),
	)
	return a, nil
}

// snapshotLogger reports display-state changes: busy and settled actions at
// info, rolled back or unknown ones at warn, plain refreshes at debug.
func snapshotLogger(logger *zap.Logger) func(state.Snapshot) {
	return func(s state.Snapshot) {
		fields := []zap.Field{zap.Uint64("version", s.Version)}
		switch {
		case s.Busy:
			logger.Info("action pending", append(fields, zap.String("action", s.Pending))...)
		case s.UnknownTx != "":
			logger.Warn("action outcome unknown", append(fields, zap.String("tx", s.UnknownTx), zap.Error(s.Err))...)
		case s.Err != nil:
			logger.Warn("display state restored", append(fields, zap.Error(s.Err))...)
		case s.LastTx != "" && s.Inputs.Empty():
			logger.Info("display state updated", append(fields, zap.String("last_tx", s.LastTx), zap.Stringer("reserves", s.Reserves))...)
		default:
			logger.Debug("display state updated", append(fields, zap.Stringer("reserves", s.Reserves))...)
		}
	}
}

func (a *app) connect(mode sessionMode) error {
	cfg := a.cfg
	switch {
	case cfg.PrivateKey != "":
		signer, err := exchange.NewSigner(cfg.PrivateKey, new(big.Int).SetUint64(cfg.ChainID), a.confirmFunc())
		if err != nil {
			return err
		}
		s, err := session.ConnectSigner(a.ctx, a.client, signer, cfg.ChainID)
		if err != nil {
			return err
		}
		a.session = s
	case mode == modeSigner:
		return fmt.Errorf("private-key is required to sign transactions")
	case cfg.Account != "":
		account, err := config.ParseAddress("account", cfg.Account)
		if err != nil {
			return err
		}
		s, err := session.Connect(a.ctx, a.client, account, cfg.ChainID)
		if err != nil {
			return err
		}
		a.session = s
	case mode == modeAccount:
		return fmt.Errorf("account or private-key is required")
	default:
		return session.RequireNetwork(a.ctx, a.client, cfg.ChainID)
	}
	a.onClose(a.session.Disconnect)
	return nil
}

// verify re-checks the network before a read.
func (a *app) verify() error {
	if a.session != nil {
		return a.session.Verify(a.ctx)
	}
	return session.RequireNetwork(a.ctx, a.client, a.cfg.ChainID)
}

func (a *app) reserves() (amm.Reserves, error) {
	if err := a.verify(); err != nil {
		return amm.Reserves{}, err
	}
	return a.oracle.CurrentReserves(a.ctx)
}

func (a *app) account() common.Address {
	if a.session == nil {
		return common.Address{}
	}
	return a.session.Account()
}

func (a *app) onClose(fn func()) {
	a.cleanup = append(a.cleanup, fn)
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
