package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammclient/internal/chain"
	"ammclient/internal/model"
)

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// Activity returns share and token transfers into or out of account between
// from and to (0 means latest), ordered by block and log index.
func (o *Oracle) Activity(ctx context.Context, account common.Address, from, to, batchSize uint64) ([]model.TransferEvent, error) {
	event, err := transferEvent()
	if err != nil {
		return nil, err
	}
	if to == 0 {
		latest, err := o.pinBlock(ctx)
		if err != nil {
			return nil, err
		}
		to = latest
	}
	ranges, err := SplitRange(from, to, batchSize)
	if err != nil {
		return nil, err
	}

	accountTopic := common.BytesToHash(account.Bytes())
	topicSets := [][][]common.Hash{
		{{event.ID}, {accountTopic}},
		{{event.ID}, nil, {accountTopic}},
	}

	seen := make(map[string]struct{})
	var out []model.TransferEvent
	for _, br := range ranges {
		for _, topics := range topicSets {
			query := ethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(br.From),
				ToBlock:   new(big.Int).SetUint64(br.To),
				Addresses: []common.Address{o.exchange, o.token},
				Topics:    topics,
			}
			err := chain.WithRetry(ctx, o.maxRetries, o.backoff, func(ctx context.Context) error {
				logs, err := o.client.FilterLogs(ctx, query)
				if err != nil {
					o.logger.Warn("filter logs failed", zap.Uint64("from", br.From), zap.Uint64("to", br.To), zap.Error(err))
					return err
				}
				for _, lg := range logs {
					if lg.Removed {
						continue
					}
					key := fmt.Sprintf("%s:%d", lg.TxHash.Hex(), lg.Index)
					if _, ok := seen[key]; ok {
						continue
					}
					transfer, ok, err := decodeTransferLog(event, lg)
					if err != nil {
						return chain.Permanent(err)
					}
					if ok {
						seen[key] = struct{}{}
						out = append(out, transfer)
					}
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("scan blocks %d-%d: %w", br.From, br.To, err)
			}
		}
		o.logger.Debug("activity batch scanned", zap.Uint64("from", br.From), zap.Uint64("to", br.To), zap.Int("total", len(out)))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}
