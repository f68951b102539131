// Package orchestrator drives one mutating action at a time through approval,
// submission and inclusion, keeping the display state consistent with the
// outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
	"ammclient/internal/model"
	"ammclient/internal/state"
)

const defaultConfirmTimeout = 2 * time.Minute

// Ledger is the transaction-signing capability.
type Ledger interface {
	ApproveToken(ctx context.Context, amount *uint256.Int) (exchange.PendingTx, error)
	SwapBaseForToken(ctx context.Context, baseIn, minTokens *uint256.Int) (exchange.PendingTx, error)
	SwapTokenForBase(ctx context.Context, tokenIn, minBase *uint256.Int) (exchange.PendingTx, error)
	AddLiquidity(ctx context.Context, base, token *uint256.Int) (exchange.PendingTx, error)
	RemoveLiquidity(ctx context.Context, shares *uint256.Int) (exchange.PendingTx, error)
	WaitIncluded(ctx context.Context, pending exchange.PendingTx) (*types.Receipt, error)
}

// Refresher re-reads every dependent display value from the ledger.
type Refresher interface {
	Refresh(ctx context.Context) (state.Snapshot, error)
}

// BalanceReader reads one asset balance.
type BalanceReader interface {
	BalanceOf(ctx context.Context, asset amm.Asset, account common.Address, block *big.Int) (*uint256.Int, error)
}

// SessionGuard is the session check run before any write.
type SessionGuard interface {
	Verify(ctx context.Context) error
	Account() common.Address
}

// Journal records terminal outcomes.
type Journal interface {
	Record(ctx context.Context, rec model.ActionRecord) error
}

// Notifier announces terminal outcomes.
type Notifier interface {
	Notify(ctx context.Context, rec model.ActionRecord) error
}

// Options configures an Orchestrator. Zero values are usable.
type Options struct {
	ChainID        uint64
	Exchange       common.Address
	Token          common.Address
	ConfirmTimeout time.Duration
	Store          *state.Store
	Observer       Observer
	Journal        Journal
	Notifier       Notifier
	Logger         *zap.Logger
	Now            func() time.Time
}

// Result describes how an action ended.
type Result struct {
	State      State
	ApprovalTx common.Hash
	ActionTx   common.Hash
	Receipt    *types.Receipt
	Transfers  []model.TransferEvent
	Snapshot   state.Snapshot
}

// Orchestrator is safe for concurrent use; concurrent Execute calls are
// rejected with ErrBusy rather than queued.
type Orchestrator struct {
	ledger    Ledger
	refresher Refresher
	balances  BalanceReader
	session   SessionGuard
	opts      Options
	logger    *zap.Logger

	busy atomic.Bool

	mu     sync.Mutex
	state  State
	failed *Intent
}

// New wires an orchestrator.
func New(ledger Ledger, refresher Refresher, balances BalanceReader, session SessionGuard, opts Options) *Orchestrator {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	if opts.Store == nil {
		opts.Store = state.NewStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		ledger:    ledger,
		refresher: refresher,
		balances:  balances,
		session:   session,
		opts:      opts,
		logger:    logger,
	}
}

// State returns the current step.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether an action is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Retry re-enters Idle with the intent of the last failed action and runs it again.
func (o *Orchestrator) Retry(ctx context.Context) (Result, error) {
	o.mu.Lock()
	current, intent := o.state, o.failed
	o.mu.Unlock()
	if current != Failed || intent == nil {
		return Result{State: current}, ErrNothingToRetry
	}
	return o.Execute(ctx, *intent)
}

// Execute runs intent to a terminal state. The returned error is nil only
// when the result is Settled.
func (o *Orchestrator) Execute(ctx context.Context, intent Intent) (Result, error) {
	if err := intent.Validate(); err != nil {
		return Result{State: o.State()}, err
	}
	if !o.busy.CompareAndSwap(false, true) {
		return Result{State: o.State()}, ErrBusy
	}
	defer o.busy.Store(false)

	run := &run{
		o:      o,
		intent: intent,
		record: model.ActionRecord{
			ChainID:     o.opts.ChainID,
			Account:     o.session.Account().Hex(),
			Action:      string(intent.Action),
			BaseAmount:  amountString(intent.BaseAmount),
			TokenAmount: amountString(intent.TokenAmount),
			Shares:      amountString(intent.Shares),
			MinOutput:   amountString(intent.MinOutput),
			StartedAt:   o.opts.Now().UTC().Format(time.RFC3339),
		},
	}
	o.mu.Lock()
	o.failed = nil
	previous := o.state
	o.mu.Unlock()
	if previous != Idle {
		o.transition(Idle, intent, common.Hash{}, nil)
	}
	return run.execute(ctx)
}

type run struct {
	o      *Orchestrator
	intent Intent
	record model.ActionRecord
	result Result
}

func (r *run) execute(ctx context.Context) (Result, error) {
	o := r.o
	if err := o.session.Verify(ctx); err != nil {
		return r.fail(ctx, fmt.Errorf("verify session: %w", err))
	}

	o.opts.Store.Dispatch(state.ActionStarted{Action: string(r.intent.Action)})

	if r.intent.Action == ActionRemoveLiquidity {
		held, err := o.balances.BalanceOf(ctx, amm.AssetShare, o.session.Account(), nil)
		if err != nil {
			return r.fail(ctx, fmt.Errorf("read share balance: %w", err))
		}
		if err := amm.CheckShareBalance(r.intent.Shares, held); err != nil {
			return r.fail(ctx, fmt.Errorf("burn %s shares with %s held: %w", r.intent.Shares.Dec(), held.Dec(), err))
		}
	}

	if r.intent.NeedsApproval() {
		o.transition(AwaitingApproval, r.intent, common.Hash{}, nil)
		pending, err := o.ledger.ApproveToken(ctx, r.approvalAmount())
		if err != nil {
			return r.fail(ctx, fmt.Errorf("approve token: %w", err))
		}
		r.result.ApprovalTx = pending.Hash
		r.record.ApprovalTx = pending.Hash.Hex()
		if _, err := r.wait(ctx, pending); err != nil {
			return r.waitFailed(ctx, pending, err)
		}
	}

	o.transition(AwaitingConfirmation, r.intent, common.Hash{}, nil)
	pending, err := r.submit(ctx)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("submit %s: %w", r.intent.Action, err))
	}
	r.result.ActionTx = pending.Hash
	r.record.ActionTx = pending.Hash.Hex()

	receipt, err := r.wait(ctx, pending)
	if err != nil {
		return r.waitFailed(ctx, pending, err)
	}
	return r.settle(ctx, pending, receipt)
}

func (r *run) approvalAmount() *uint256.Int {
	return r.intent.TokenAmount
}

func (r *run) submit(ctx context.Context) (exchange.PendingTx, error) {
	ledger := r.o.ledger
	switch r.intent.Action {
	case ActionSwap:
		if r.intent.TokenInput {
			return ledger.SwapTokenForBase(ctx, r.intent.TokenAmount, r.intent.minOutput())
		}
		return ledger.SwapBaseForToken(ctx, r.intent.BaseAmount, r.intent.minOutput())
	case ActionAddLiquidity:
		token := r.intent.TokenAmount
		if token == nil {
			token = new(uint256.Int)
		}
		return ledger.AddLiquidity(ctx, r.intent.BaseAmount, token)
	case ActionRemoveLiquidity:
		return ledger.RemoveLiquidity(ctx, r.intent.Shares)
	default:
		return exchange.PendingTx{}, fmt.Errorf("%w: unknown action %q", ErrInvalidIntent, r.intent.Action)
	}
}

// wait bounds inclusion by the confirmation timeout. Once a transaction is
// submitted it cannot be cancelled, so a timeout is reported as unknown.
func (r *run) wait(ctx context.Context, pending exchange.PendingTx) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.o.opts.ConfirmTimeout)
	defer cancel()
	return r.o.ledger.WaitIncluded(waitCtx, pending)
}

func (r *run) waitFailed(ctx context.Context, pending exchange.PendingTx, err error) (Result, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return r.unknown(ctx, pending, err)
	}
	return r.fail(ctx, fmt.Errorf("wait %s: %w", pending.Method, err))
}

func (r *run) settle(ctx context.Context, pending exchange.PendingTx, receipt *types.Receipt) (Result, error) {
	o := r.o
	r.result.Receipt = receipt
	if receipt != nil && receipt.BlockNumber != nil {
		r.record.BlockNumber = receipt.BlockNumber.Uint64()
	}
	transfers, err := exchange.DecodeTransfers(receipt, o.opts.Exchange, o.opts.Token)
	if err != nil {
		o.logger.Warn("decode receipt transfers failed", zap.String("tx", pending.Hash.Hex()), zap.Error(err))
	}
	r.result.Transfers = transfers
	r.record.Transfers = transfers

	o.opts.Store.Dispatch(state.ActionSettled{TxHash: pending.Hash.Hex()})
	o.transition(Settled, r.intent, pending.Hash, nil)

	snap, err := o.refresher.Refresh(ctx)
	if err != nil {
		o.logger.Warn("refresh after settle failed", zap.String("tx", pending.Hash.Hex()), zap.Error(err))
	}
	r.result.Snapshot = snap
	r.result.State = Settled
	r.finish(ctx, Settled, nil)
	return r.result, nil
}

func (r *run) fail(ctx context.Context, err error) (Result, error) {
	o := r.o
	intent := r.intent
	o.mu.Lock()
	o.failed = &intent
	o.mu.Unlock()

	r.result.Snapshot = o.opts.Store.Dispatch(state.ActionFailed{Err: err})
	o.transition(Failed, r.intent, r.result.ActionTx, err)
	r.result.State = Failed
	r.finish(ctx, Failed, err)
	return r.result, err
}

func (r *run) unknown(ctx context.Context, pending exchange.PendingTx, cause error) (Result, error) {
	o := r.o
	err := fmt.Errorf("%w: %s %s: %v", ErrConfirmationUnknown, pending.Method, pending.Hash.Hex(), cause)
	r.result.Snapshot = o.opts.Store.Dispatch(state.ActionUnknown{TxHash: pending.Hash.Hex(), Err: err})
	o.transition(Unknown, r.intent, pending.Hash, err)
	r.result.State = Unknown
	// ctx may already be done; reporting must still go out
	r.finish(context.WithoutCancel(ctx), Unknown, err)
	return r.result, err
}

func (r *run) finish(ctx context.Context, final State, err error) {
	o := r.o
	r.record.State = final.String()
	r.record.FinishedAt = o.opts.Now().UTC().Format(time.RFC3339)
	if err != nil {
		r.record.Error = err.Error()
	}
	if o.opts.Journal != nil {
		if jerr := o.opts.Journal.Record(ctx, r.record); jerr != nil {
			o.logger.Warn("journal record failed", zap.String("action", r.record.Action), zap.Error(jerr))
		}
	}
	if o.opts.Notifier != nil {
		if nerr := o.opts.Notifier.Notify(ctx, r.record); nerr != nil {
			o.logger.Warn("notify failed", zap.String("action", r.record.Action), zap.Error(nerr))
		}
	}
}

func (o *Orchestrator) transition(to State, intent Intent, tx common.Hash, err error) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	fields := []zap.Field{
		zap.String("action", string(intent.Action)),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	}
	if tx != (common.Hash{}) {
		fields = append(fields, zap.String("tx", tx.Hex()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	o.logger.Info("action transition", fields...)

	if o.opts.Observer != nil {
		o.opts.Observer(Transition{From: from, To: to, Intent: intent, TxHash: tx, Err: err, At: o.opts.Now()})
	}
}
