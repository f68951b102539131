package exchange

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names on the deployed exchange.
const (
	methodGetReserve        = "getReserve"
	methodGetAmountOfTokens = "getAmountOfTokens"
	methodAddLiquidity      = "addLiquidity"
	methodRemoveLiquidity   = "removeLiquidity"
	methodBaseToToken       = "ethToCryptoDevToken"
	methodTokenToBase       = "cryptoDevTokenToEth"
	methodTokenAddress      = "cryptoDevTokenAddress"
	methodTotalSupply       = "totalSupply"
	methodBalanceOf         = "balanceOf"
	methodApprove           = "approve"
	methodAllowance         = "allowance"
	eventTransfer           = "Transfer"
)

// The exchange is itself the ERC-20 liquidity-share token, so its ABI carries
// totalSupply/balanceOf next to the pool methods.
const exchangeABIJSON = `[
  {"inputs": [], "name": "getReserve", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "cryptoDevTokenAddress", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [
      {"internalType": "uint256", "name": "inputAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "inputReserve", "type": "uint256"},
      {"internalType": "uint256", "name": "outputReserve", "type": "uint256"}
    ],
    "name": "getAmountOfTokens",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "pure",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_amount", "type": "uint256"}],
    "name": "addLiquidity",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_amount", "type": "uint256"}],
    "name": "removeLiquidity",
    "outputs": [
      {"internalType": "uint256", "name": "", "type": "uint256"},
      {"internalType": "uint256", "name": "", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_minTokens", "type": "uint256"}],
    "name": "ethToCryptoDevToken",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "_tokensSold", "type": "uint256"},
      {"internalType": "uint256", "name": "_minEth", "type": "uint256"}
    ],
    "name": "cryptoDevTokenToEth",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "spender", "type": "address"}
    ],
    "name": "allowance",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "spender", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

var (
	exchangeABI     abi.ABI
	exchangeABIOnce sync.Once
	exchangeABIErr  error
	erc20ABI        abi.ABI
	erc20ABIOnce    sync.Once
	erc20ABIErr     error
)

// ExchangeABI returns the parsed exchange ABI.
func ExchangeABI() (abi.ABI, error) {
	exchangeABIOnce.Do(func() {
		exchangeABI, exchangeABIErr = abi.JSON(strings.NewReader(exchangeABIJSON))
	})
	return exchangeABI, exchangeABIErr
}

// ERC20ABI returns the parsed ERC20 ABI used for the paired token.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
