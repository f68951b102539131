// Package session models the wallet session: an account bound to the single
// network the exchange is deployed on. Reads need a valid session; mutations
// additionally need its signing capability.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammclient/internal/exchange"
)

var (
	// ErrWrongNetwork means the node serves a different chain than required.
	ErrWrongNetwork = errors.New("wrong network")
	// ErrNotConnected means the session was disconnected or invalidated.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrReadOnly means a mutation was requested on a session without a key.
	ErrReadOnly = errors.New("session has no signing capability")
)

// NetworkReader reports the chain id the node serves.
type NetworkReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	reader   NetworkReader
	account  common.Address
	required uint64
	signer   *exchange.Signer
	valid    bool
}

// Connect opens a read-only session for account. The network is checked
// before the session is returned.
func Connect(ctx context.Context, reader NetworkReader, account common.Address, requiredChainID uint64) (*Session, error) {
	return connect(ctx, reader, account, requiredChainID, nil)
}

// ConnectSigner opens a session that can also sign. The account is the
// signer's address.
func ConnectSigner(ctx context.Context, reader NetworkReader, signer *exchange.Signer, requiredChainID uint64) (*Session, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is nil")
	}
	if id := signer.ChainID(); !id.IsUint64() || id.Uint64() != requiredChainID {
		return nil, fmt.Errorf("%w: signer is for chain %s, want %d", ErrWrongNetwork, id, requiredChainID)
	}
	return connect(ctx, reader, signer.Address(), requiredChainID, signer)
}

func connect(ctx context.Context, reader NetworkReader, account common.Address, requiredChainID uint64, signer *exchange.Signer) (*Session, error) {
	if reader == nil {
		return nil, fmt.Errorf("network reader is nil")
	}
	if account == (common.Address{}) {
		return nil, fmt.Errorf("account is required")
	}
	s := &Session{
		reader:   reader,
		account:  account,
		required: requiredChainID,
		signer:   signer,
	}
	if err := s.checkNetwork(ctx); err != nil {
		return nil, err
	}
	s.valid = true
	return s, nil
}

// Verify re-reads the network id. A mismatch invalidates the session; once
// invalid, every call returns ErrNotConnected until Reconnect succeeds.
func (s *Session) Verify(ctx context.Context) error {
	s.mu.RLock()
	valid := s.valid
	s.mu.RUnlock()
	if !valid {
		return ErrNotConnected
	}
	if err := s.checkNetwork(ctx); err != nil {
		if errors.Is(err, ErrWrongNetwork) {
			s.invalidate()
		}
		return err
	}
	return nil
}

// Reconnect re-validates an invalidated session against the required network.
func (s *Session) Reconnect(ctx context.Context) error {
	if err := s.checkNetwork(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.valid = true
	s.mu.Unlock()
	return nil
}

// Disconnect ends the session.
func (s *Session) Disconnect() {
	s.invalidate()
}

// Connected reports whether the session is still valid.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// Account returns the session's address.
func (s *Session) Account() common.Address { return s.account }

// RequiredChainID returns the network id the session is bound to.
func (s *Session) RequiredChainID() uint64 { return s.required }

// Signer returns the signing capability after verifying the session.
func (s *Session) Signer(ctx context.Context) (*exchange.Signer, error) {
	if err := s.Verify(ctx); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, ErrReadOnly
	}
	return s.signer, nil
}

// CanSign reports whether the session carries a key.
func (s *Session) CanSign() bool { return s.signer != nil }

func (s *Session) invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *Session) checkNetwork(ctx context.Context) error {
	id, err := s.reader.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if !id.IsUint64() || id.Uint64() != s.required {
		return fmt.Errorf("%w: connected to chain %s, want %d", ErrWrongNetwork, id, s.required)
	}
	return nil
}

// RequireNetwork checks the node serves requiredChainID without opening a
// session. Account-free reads go through it.
func RequireNetwork(ctx context.Context, reader NetworkReader, requiredChainID uint64) error {
	if reader == nil {
		return fmt.Errorf("network reader is nil")
	}
	s := &Session{reader: reader, required: requiredChainID}
	return s.checkNetwork(ctx)
}
