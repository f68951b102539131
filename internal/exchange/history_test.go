package exchange

import (
	"context"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}

	got, err = SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []BlockRange{{From: 5, To: 5}}) {
		t.Fatalf("ranges mismatch: %+v", got)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestActivityScansInBatches(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	fe := newFakeEth()
	fe.blockNumber = 50
	for _, tc := range []struct {
		token, from, to common.Address
		amount          int64
		block           uint64
		tx              byte
	}{
		{testToken, testAccount, testExchange, 500, 40, 3},
		{testExchange, common.Address{}, testAccount, 100, 10, 1},
		{testToken, other, other, 7, 25, 2},
		{testExchange, testAccount, common.Address{}, 50, 25, 4},
	} {
		lg := transferLog(t, tc.token, tc.from, tc.to, tc.amount, 0)
		lg.BlockNumber = tc.block
		lg.TxHash = common.Hash{tc.tx}
		fe.logs = append(fe.logs, *lg)
	}

	got, err := newTestOracle(t, fe).Activity(context.Background(), testAccount, 0, 0, 20)
	if err != nil {
		t.Fatalf("Activity error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transfers, got %d: %+v", len(got), got)
	}
	wantBlocks := []uint64{10, 25, 40}
	for i, tr := range got {
		if tr.BlockNumber != wantBlocks[i] {
			t.Fatalf("transfer %d at block %d, want %d", i, tr.BlockNumber, wantBlocks[i])
		}
	}
	if got[1].Amount != "50" || got[1].TxHash == "" {
		t.Fatalf("unexpected burn transfer: %+v", got[1])
	}

	fe.mu.Lock()
	ranges := append([][2]uint64(nil), fe.logRanges...)
	fe.mu.Unlock()
	// two topic filters per batch
	want := [][2]uint64{{0, 19}, {0, 19}, {20, 39}, {20, 39}, {40, 50}, {40, 50}}
	if !reflect.DeepEqual(ranges, want) {
		t.Fatalf("queried ranges %v, want %v", ranges, want)
	}
}
