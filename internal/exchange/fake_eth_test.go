package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"ammclient/internal/chain"
)

var (
	testExchange = common.HexToAddress("0x0000000000000000000000000000000000000e0e")
	testToken    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type callArgs struct {
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

// fakeEth serves just enough of the eth namespace for the oracle.
type fakeEth struct {
	mu           sync.Mutex
	chainID      uint64
	blockNumber  uint64
	native       map[common.Address]*big.Int
	tokenBalance map[common.Address]*big.Int
	shareBalance map[common.Address]*big.Int
	tokenReserve *big.Int
	totalSupply  *big.Int
	decimals     uint8
	symbol       string
	failDecimals bool
	badReserve   bool
	logs         []types.Log

	blockTags []string
	logRanges [][2]uint64
	calls     map[string]int
}

func newFakeEth() *fakeEth {
	return &fakeEth{
		chainID:      5,
		blockNumber:  123,
		native:       map[common.Address]*big.Int{},
		tokenBalance: map[common.Address]*big.Int{},
		shareBalance: map[common.Address]*big.Int{},
		tokenReserve: big.NewInt(0),
		totalSupply:  big.NewInt(0),
		decimals:     18,
		symbol:       "CD",
		calls:        map[string]int{},
	}
}

func (f *fakeEth) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(new(big.Int).SetUint64(f.chainID)), nil
}

func (f *fakeEth) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	return hexutil.Uint64(f.blockNumber), nil
}

func (f *fakeEth) GetBalance(ctx context.Context, addr common.Address, block string) (*hexutil.Big, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockTags = append(f.blockTags, block)
	f.calls["getBalance"]++
	return (*hexutil.Big)(valueOrZero(f.native[addr])), nil
}

func (f *fakeEth) Call(ctx context.Context, args callArgs, block string) (hexutil.Bytes, error) {
	input := args.Input
	if len(input) == 0 {
		input = args.Data
	}
	if args.To == nil || len(input) < 4 {
		return nil, fmt.Errorf("malformed call")
	}

	parsed, _ := ERC20ABI()
	if *args.To == testExchange {
		parsed, _ = ExchangeABI()
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return nil, err
	}
	params, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockTags = append(f.blockTags, block)
	f.calls[method.Name]++

	var out []interface{}
	switch {
	case method.Name == methodGetReserve:
		if f.badReserve {
			return hexutil.Bytes{0x01}, nil
		}
		out = []interface{}{valueOrZero(f.tokenReserve)}
	case method.Name == methodTotalSupply:
		out = []interface{}{valueOrZero(f.totalSupply)}
	case method.Name == methodTokenAddress:
		out = []interface{}{testToken}
	case method.Name == methodBalanceOf && *args.To == testExchange:
		out = []interface{}{valueOrZero(f.shareBalance[params[0].(common.Address)])}
	case method.Name == methodBalanceOf:
		out = []interface{}{valueOrZero(f.tokenBalance[params[0].(common.Address)])}
	case method.Name == methodAllowance:
		out = []interface{}{big.NewInt(0)}
	case method.Name == methodGetAmountOfTokens:
		in, inR, outR := params[0].(*big.Int), params[1].(*big.Int), params[2].(*big.Int)
		withFee := new(big.Int).Mul(in, big.NewInt(99))
		num := new(big.Int).Mul(withFee, outR)
		den := new(big.Int).Add(new(big.Int).Mul(inR, big.NewInt(100)), withFee)
		out = []interface{}{num.Div(num, den)}
	case method.Name == "decimals":
		if f.failDecimals {
			return nil, fmt.Errorf("execution reverted")
		}
		out = []interface{}{f.decimals}
	case method.Name == "symbol":
		out = []interface{}{f.symbol}
	case method.Name == "name":
		out = []interface{}{"Crypto Dev Token"}
	default:
		return nil, fmt.Errorf("unsupported method %s", method.Name)
	}
	return method.Outputs.Pack(out...)
}

type filterArgs struct {
	FromBlock *hexutil.Big     `json:"fromBlock"`
	ToBlock   *hexutil.Big     `json:"toBlock"`
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
}

func (f *fakeEth) GetLogs(ctx context.Context, args filterArgs) ([]types.Log, error) {
	from, to := (*big.Int)(args.FromBlock).Uint64(), (*big.Int)(args.ToBlock).Uint64()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logRanges = append(f.logRanges, [2]uint64{from, to})

	out := []types.Log{}
	for _, lg := range f.logs {
		if lg.BlockNumber < from || lg.BlockNumber > to || !containsAddress(args.Address, lg.Address) {
			continue
		}
		if topicsMatch(args.Topics, lg.Topics) {
			out = append(out, lg)
		}
	}
	return out, nil
}

func containsAddress(list []common.Address, addr common.Address) bool {
	if len(list) == 0 {
		return true
	}
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alternatives := range filter {
		if len(alternatives) == 0 {
			continue
		}
		match := false
		for _, want := range alternatives {
			if topics[i] == want {
				match = true
			}
		}
		if !match {
			return false
		}
	}
	return true
}

func (f *fakeEth) seenBlockTags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.blockTags...)
}

func (f *fakeEth) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func newInprocClient(t *testing.T, fe *fakeEth) *chain.Client {
	t.Helper()
	srv := gethrpc.NewServer()
	if err := srv.RegisterName("eth", fe); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client := chain.NewClientFromRPC(gethrpc.DialInProc(srv))
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func newTestOracle(t *testing.T, fe *fakeEth) *Oracle {
	t.Helper()
	oracle, err := NewOracle(newInprocClient(t, fe), testExchange, testToken, OracleOptions{DefaultDecimals: 18})
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	return oracle
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
