// Package exchange talks to the deployed exchange contract and its paired
// token: consistent reserve reads, wallet balances, token metadata and the
// signed mutations that move funds.
package exchange

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/bluele/gcache"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammclient/internal/amm"
	"ammclient/internal/chain"
)

const defaultMetaCacheSize = 16

// Balances holds one account's holdings of every asset, read at one block.
type Balances struct {
	Base        *uint256.Int
	Token       *uint256.Int
	Shares      *uint256.Int
	BlockNumber uint64
}

// ZeroBalances returns balances with every asset set to zero.
func ZeroBalances() Balances {
	return Balances{Base: new(uint256.Int), Token: new(uint256.Int), Shares: new(uint256.Int)}
}

// OracleOptions tunes read behaviour.
type OracleOptions struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	DefaultDecimals uint8
	MetaCacheSize   int
	Logger          *zap.Logger
}

// Oracle reads pool and wallet state. All reads are idempotent and retried.
type Oracle struct {
	client     *chain.Client
	exchange   common.Address
	token      common.Address
	maxRetries int
	backoff    time.Duration
	decimals   uint8
	meta       gcache.Cache
	logger     *zap.Logger
}

// NewOracle binds an oracle to the exchange and its paired token.
func NewOracle(client *chain.Client, exchangeAddr, tokenAddr common.Address, opts OracleOptions) (*Oracle, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if _, err := ExchangeABI(); err != nil {
		return nil, fmt.Errorf("parse exchange abi: %w", err)
	}
	if _, err := ERC20ABI(); err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	size := opts.MetaCacheSize
	if size <= 0 {
		size = defaultMetaCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decimals := opts.DefaultDecimals
	if decimals == 0 {
		decimals = 18
	}
	return &Oracle{
		client:     client,
		exchange:   exchangeAddr,
		token:      tokenAddr,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		decimals:   decimals,
		meta:       gcache.New(size).LRU().Build(),
		logger:     logger,
	}, nil
}

// Exchange returns the exchange contract address.
func (o *Oracle) Exchange() common.Address { return o.exchange }

// Token returns the paired token address.
func (o *Oracle) Token() common.Address { return o.token }

// CurrentReserves reads base reserve, token reserve and share supply at a
// single pinned block so the three values are mutually consistent.
func (o *Oracle) CurrentReserves(ctx context.Context) (amm.Reserves, error) {
	block, err := o.pinBlock(ctx)
	if err != nil {
		return amm.Reserves{}, err
	}
	blockNum := new(big.Int).SetUint64(block)

	var base, token, shares *uint256.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := o.nativeBalance(gctx, o.exchange, blockNum)
		if err != nil {
			return fmt.Errorf("base reserve: %w", err)
		}
		base = v
		return nil
	})
	g.Go(func() error {
		v, err := o.callUint(gctx, o.exchange, exchangeABIOrPanic(), methodGetReserve, blockNum)
		if err != nil {
			return fmt.Errorf("token reserve: %w", err)
		}
		token = v
		return nil
	})
	g.Go(func() error {
		v, err := o.callUint(gctx, o.exchange, exchangeABIOrPanic(), methodTotalSupply, blockNum)
		if err != nil {
			return fmt.Errorf("share supply: %w", err)
		}
		shares = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return amm.Reserves{}, err
	}

	r := amm.Reserves{Base: base, Token: token, TotalShares: shares, BlockNumber: block}
	o.logger.Debug("reserves read", zap.Uint64("block", block), zap.Stringer("reserves", r))
	return r, nil
}

// Balances reads the account's base, token and share balances at one block.
func (o *Oracle) Balances(ctx context.Context, account common.Address) (Balances, error) {
	block, err := o.pinBlock(ctx)
	if err != nil {
		return Balances{}, err
	}
	blockNum := new(big.Int).SetUint64(block)

	out := Balances{BlockNumber: block}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := o.BalanceOf(gctx, amm.AssetBase, account, blockNum)
		out.Base = v
		return err
	})
	g.Go(func() error {
		v, err := o.BalanceOf(gctx, amm.AssetToken, account, blockNum)
		out.Token = v
		return err
	})
	g.Go(func() error {
		v, err := o.BalanceOf(gctx, amm.AssetShare, account, blockNum)
		out.Shares = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Balances{}, err
	}
	return out, nil
}

// BalanceOf reads one asset balance for account. A nil block means latest.
func (o *Oracle) BalanceOf(ctx context.Context, asset amm.Asset, account common.Address, block *big.Int) (*uint256.Int, error) {
	switch asset {
	case amm.AssetBase:
		v, err := o.nativeBalance(ctx, account, block)
		if err != nil {
			return nil, fmt.Errorf("base balance: %w", err)
		}
		return v, nil
	case amm.AssetToken:
		v, err := o.callUint(ctx, o.token, erc20ABIOrPanic(), methodBalanceOf, block, account)
		if err != nil {
			return nil, fmt.Errorf("token balance: %w", err)
		}
		return v, nil
	case amm.AssetShare:
		v, err := o.callUint(ctx, o.exchange, exchangeABIOrPanic(), methodBalanceOf, block, account)
		if err != nil {
			return nil, fmt.Errorf("share balance: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown asset %s", asset)
	}
}

// Allowance returns how much of owner's token the exchange may pull.
func (o *Oracle) Allowance(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	v, err := o.callUint(ctx, o.token, erc20ABIOrPanic(), methodAllowance, nil, owner, o.exchange)
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return v, nil
}

// ContractQuote asks the exchange's own pricing function for the output of a
// trade. It is only used to cross-check the local quote.
func (o *Oracle) ContractQuote(ctx context.Context, amountIn, inputReserve, outputReserve *uint256.Int) (*uint256.Int, error) {
	v, err := o.callUint(ctx, o.exchange, exchangeABIOrPanic(), methodGetAmountOfTokens, nil,
		amountIn.ToBig(), inputReserve.ToBig(), outputReserve.ToBig())
	if err != nil {
		return nil, fmt.Errorf("contract quote: %w", err)
	}
	return v, nil
}

// PairedToken reads the token address the exchange was deployed with.
func (o *Oracle) PairedToken(ctx context.Context) (common.Address, error) {
	values, err := o.call(ctx, o.exchange, exchangeABIOrPanic(), methodTokenAddress, nil)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unsupported address type %T", values[0])
	}
	return addr, nil
}

func (o *Oracle) pinBlock(ctx context.Context) (uint64, error) {
	var block uint64
	err := chain.WithRetry(ctx, o.maxRetries, o.backoff, func(ctx context.Context) error {
		v, err := o.client.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}
		block = v
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return block, nil
}

func (o *Oracle) nativeBalance(ctx context.Context, account common.Address, block *big.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := chain.WithRetry(ctx, o.maxRetries, o.backoff, func(ctx context.Context) error {
		v, err := o.client.BalanceAt(ctx, account, block)
		if err != nil {
			return err
		}
		out, err = toUint256(v)
		return chain.Permanent(err)
	})
	return out, err
}

func (o *Oracle) callUint(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) (*uint256.Int, error) {
	values, err := o.call(ctx, to, parsed, method, block, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported int type %T", method, values[0])
	}
	return toUint256(v)
}

func (o *Oracle) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var values []interface{}
	err = chain.WithRetry(ctx, o.maxRetries, o.backoff, func(ctx context.Context) error {
		resp, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
		if err != nil {
			return fmt.Errorf("call %s: %w", method, err)
		}
		values, err = parsed.Unpack(method, resp)
		if err != nil {
			return chain.Permanent(fmt.Errorf("unpack %s: %w", method, err))
		}
		if len(values) == 0 {
			return chain.Permanent(fmt.Errorf("%s: empty result", method))
		}
		return nil
	})
	return values, err
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value %s does not fit in 256 bits", v)
	}
	return out, nil
}

// The ABIs are validated in NewOracle, so later lookups cannot fail.
func exchangeABIOrPanic() abi.ABI {
	parsed, err := ExchangeABI()
	if err != nil {
		panic(err)
	}
	return parsed
}

func erc20ABIOrPanic() abi.ABI {
	parsed, err := ERC20ABI()
	if err != nil {
		panic(err)
	}
	return parsed
}
