package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"ammclient/internal/model"
)

// DecodeTransfers extracts ERC-20 Transfer events emitted by the exchange
// (share mints and burns) or the paired token from a receipt.
func DecodeTransfers(receipt *types.Receipt, exchangeAddr, tokenAddr common.Address) ([]model.TransferEvent, error) {
	if receipt == nil {
		return nil, nil
	}
	event, err := transferEvent()
	if err != nil {
		return nil, err
	}

	var out []model.TransferEvent
	for _, lg := range receipt.Logs {
		if lg == nil || (lg.Address != exchangeAddr && lg.Address != tokenAddr) {
			continue
		}
		transfer, ok, err := decodeTransferLog(event, *lg)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, transfer)
		}
	}
	return out, nil
}

func transferEvent() (abi.Event, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return abi.Event{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return parsed.Events[eventTransfer], nil
}

// decodeTransferLog reports ok=false for logs that are not Transfer events.
func decodeTransferLog(event abi.Event, lg types.Log) (model.TransferEvent, bool, error) {
	if len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
		return model.TransferEvent{}, false, nil
	}
	values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return model.TransferEvent{}, false, fmt.Errorf("unpack transfer log %d: %w", lg.Index, err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return model.TransferEvent{}, false, fmt.Errorf("transfer log %d: unsupported int type %T", lg.Index, values[0])
	}
	transfer := model.TransferEvent{
		Token:       lg.Address.Hex(),
		From:        common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
		To:          common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
		Amount:      amount.String(),
		LogIndex:    uint64(lg.Index),
		BlockNumber: lg.BlockNumber,
	}
	if lg.TxHash != (common.Hash{}) {
		transfer.TxHash = lg.TxHash.Hex()
	}
	return transfer, true, nil
}
