package exchange

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammclient/internal/model"
)

// TokenMeta returns metadata for the paired token, cached after the first
// successful read. When decimals cannot be read the configured default is
// returned with Fallback set, and the result is not cached.
func (o *Oracle) TokenMeta(ctx context.Context) (model.TokenMeta, error) {
	return o.tokenMeta(ctx, o.token)
}

// ShareMeta returns metadata for the exchange's liquidity-share token.
func (o *Oracle) ShareMeta(ctx context.Context) (model.TokenMeta, error) {
	return o.tokenMeta(ctx, o.exchange)
}

func (o *Oracle) tokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if cached, err := o.meta.Get(token); err == nil {
		if meta, ok := cached.(model.TokenMeta); ok {
			return meta, nil
		}
	}

	meta, err := o.fetchTokenMeta(ctx, token)
	if err != nil {
		o.logger.Warn("token metadata fetch failed",
			zap.String("token", token.Hex()), zap.Uint8("default_decimals", o.decimals), zap.Error(err))
		return model.TokenMeta{Address: token.Hex(), Decimals: o.decimals, Fallback: true}, nil
	}
	if err := o.meta.Set(token, meta); err != nil {
		return meta, fmt.Errorf("cache token metadata: %w", err)
	}
	return meta, nil
}

func (o *Oracle) fetchTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	parsed := erc20ABIOrPanic()

	values, err := o.call(ctx, token, parsed, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported uint8 type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := o.call(ctx, token, parsed, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else {
		o.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	if values, err := o.call(ctx, token, parsed, "name", nil); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else {
		o.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return meta, nil
}
