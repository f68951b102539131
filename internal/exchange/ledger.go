package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammclient/internal/chain"
)

// PendingTx is a transaction accepted by the node but not yet included.
type PendingTx struct {
	Hash   common.Hash
	Method string
	Tx     *types.Transaction
}

// Ledger submits signed mutations to the token and exchange contracts.
type Ledger struct {
	exchangeAddr common.Address
	tokenAddr    common.Address
	exchange     *bind.BoundContract
	token        *bind.BoundContract
	deploy       bind.DeployBackend
	signer       *Signer
	logger       *zap.Logger
}

// NewLedger binds the write path to a connected client.
func NewLedger(client *chain.Client, exchangeAddr, tokenAddr common.Address, signer *Signer, logger *zap.Logger) (*Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	return newLedger(client.Backend(), client.DeployBackend(), exchangeAddr, tokenAddr, signer, logger)
}

func newLedger(backend bind.ContractBackend, deploy bind.DeployBackend, exchangeAddr, tokenAddr common.Address, signer *Signer, logger *zap.Logger) (*Ledger, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is nil")
	}
	exchangeParsed, err := ExchangeABI()
	if err != nil {
		return nil, fmt.Errorf("parse exchange abi: %w", err)
	}
	tokenParsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		exchangeAddr: exchangeAddr,
		tokenAddr:    tokenAddr,
		exchange:     bind.NewBoundContract(exchangeAddr, exchangeParsed, backend, backend, backend),
		token:        bind.NewBoundContract(tokenAddr, tokenParsed, backend, backend, backend),
		deploy:       deploy,
		signer:       signer,
		logger:       logger,
	}, nil
}

// Account returns the address transactions are sent from.
func (l *Ledger) Account() common.Address { return l.signer.Address() }

// ApproveToken lets the exchange pull amount of the paired token.
func (l *Ledger) ApproveToken(ctx context.Context, amount *uint256.Int) (PendingTx, error) {
	return l.send(ctx, l.token, l.tokenAddr, methodApprove, nil, l.exchangeAddr, amount.ToBig())
}

// SwapBaseForToken sells baseIn of the native currency for at least minTokens.
func (l *Ledger) SwapBaseForToken(ctx context.Context, baseIn, minTokens *uint256.Int) (PendingTx, error) {
	return l.send(ctx, l.exchange, l.exchangeAddr, methodBaseToToken, baseIn, minTokens.ToBig())
}

// SwapTokenForBase sells tokenIn for at least minBase of the native currency.
func (l *Ledger) SwapTokenForBase(ctx context.Context, tokenIn, minBase *uint256.Int) (PendingTx, error) {
	return l.send(ctx, l.exchange, l.exchangeAddr, methodTokenToBase, nil, tokenIn.ToBig(), minBase.ToBig())
}

// AddLiquidity deposits base with the paired token amount.
func (l *Ledger) AddLiquidity(ctx context.Context, base, token *uint256.Int) (PendingTx, error) {
	return l.send(ctx, l.exchange, l.exchangeAddr, methodAddLiquidity, base, token.ToBig())
}

// RemoveLiquidity burns shares for the proportional reserves.
func (l *Ledger) RemoveLiquidity(ctx context.Context, shares *uint256.Int) (PendingTx, error) {
	return l.send(ctx, l.exchange, l.exchangeAddr, methodRemoveLiquidity, nil, shares.ToBig())
}

// WaitIncluded blocks until the transaction is mined or ctx is done. A
// reverted transaction yields chain.ErrTransactionRejected with the receipt.
func (l *Ledger) WaitIncluded(ctx context.Context, pending PendingTx) (*types.Receipt, error) {
	if pending.Tx == nil {
		return nil, fmt.Errorf("wait %s: transaction is nil", pending.Method)
	}
	receipt, err := bind.WaitMined(ctx, l.deploy, pending.Tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s %s: %w", pending.Method, pending.Hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s %s reverted in block %s",
			chain.ErrTransactionRejected, pending.Method, pending.Hash.Hex(), receipt.BlockNumber)
	}
	l.logger.Info("transaction included",
		zap.String("method", pending.Method),
		zap.String("tx", pending.Hash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))
	return receipt, nil
}

func (l *Ledger) send(ctx context.Context, contract *bind.BoundContract, to common.Address, method string, value *uint256.Int, args ...interface{}) (PendingTx, error) {
	req := SignRequest{Method: method, To: to, Value: value, Args: describeArgs(args)}
	if err := l.signer.approve(ctx, req); err != nil {
		if errors.Is(err, chain.ErrUserCancelled) {
			return PendingTx{}, err
		}
		return PendingTx{}, fmt.Errorf("%w: %s: %v", chain.ErrUserCancelled, method, err)
	}

	opts, err := l.signer.transactOpts(ctx, value)
	if err != nil {
		return PendingTx{}, err
	}
	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return PendingTx{}, fmt.Errorf("%w: %s: %v", chain.ErrTransactionRejected, method, err)
	}
	l.logger.Info("transaction sent",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))
	return PendingTx{Hash: tx.Hash(), Method: method, Tx: tx}, nil
}

func describeArgs(args []interface{}) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case common.Address:
			out = append(out, v.Hex())
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
