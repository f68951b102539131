package exchange

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignRequest describes a transaction awaiting the holder's consent.
type SignRequest struct {
	Method string
	To     common.Address
	Value  *uint256.Int
	Args   []string
}

// ConfirmFunc asks the key holder to approve a request. Returning an error
// aborts the send; implementations return chain.ErrUserCancelled on refusal.
type ConfirmFunc func(ctx context.Context, req SignRequest) error

// Signer is the write capability: it owns the key and the consent prompt.
type Signer struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	address common.Address
	confirm ConfirmFunc
}

// NewSigner loads a hex private key for chainID. A nil confirm approves every request.
func NewSigner(hexKey string, chainID *big.Int, confirm ConfirmFunc) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{
		key:     key,
		chainID: new(big.Int).Set(chainID),
		address: crypto.PubkeyToAddress(key.PublicKey),
		confirm: confirm,
	}, nil
}

// Address returns the account the signer controls.
func (s *Signer) Address() common.Address { return s.address }

// ChainID returns the chain the signer signs for.
func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

func (s *Signer) transactOpts(ctx context.Context, value *uint256.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	if value != nil && !value.IsZero() {
		opts.Value = value.ToBig()
	}
	return opts, nil
}

func (s *Signer) approve(ctx context.Context, req SignRequest) error {
	if s.confirm == nil {
		return nil
	}
	return s.confirm(ctx, req)
}
