package exchange

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func transferLog(t *testing.T, token, from, to common.Address, amount int64, index uint) *types.Log {
	t.Helper()
	parsed, err := ERC20ABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	event := parsed.Events[eventTransfer]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amount))
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    data,
		Index:   index,
	}
}

func TestDecodeTransfers(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(t, testToken, testAccount, testExchange, 500, 0),
		transferLog(t, testExchange, common.Address{}, testAccount, 100, 1),
		transferLog(t, other, testAccount, other, 1, 2),
		{Address: testToken, Topics: []common.Hash{{0x01}}, Index: 3},
	}}

	got, err := DecodeTransfers(receipt, testExchange, testToken)
	if err != nil {
		t.Fatalf("DecodeTransfers error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(got))
	}
	if got[0].Token != testToken.Hex() || got[0].From != testAccount.Hex() || got[0].Amount != "500" {
		t.Fatalf("unexpected token transfer: %+v", got[0])
	}
	if got[1].Token != testExchange.Hex() || got[1].To != testAccount.Hex() || got[1].Amount != "100" || got[1].LogIndex != 1 {
		t.Fatalf("unexpected share mint: %+v", got[1])
	}
}

func TestDecodeTransfersNilReceipt(t *testing.T) {
	got, err := DecodeTransfers(nil, testExchange, testToken)
	if err != nil || got != nil {
		t.Fatalf("expected nil result, got %v %v", got, err)
	}
}
