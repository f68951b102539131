// Package state holds what the client shows: immutable snapshots of pool and
// wallet state, advanced only by Reduce.
package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
)

// Inputs are the amounts the user has typed but not yet submitted.
type Inputs struct {
	Action      string
	BaseAmount  *uint256.Int
	TokenAmount *uint256.Int
	Shares      *uint256.Int
	TokenInput  bool
}

// Empty reports whether no input is set.
func (in Inputs) Empty() bool {
	return in.Action == "" && in.BaseAmount == nil && in.TokenAmount == nil && in.Shares == nil && !in.TokenInput
}

// Snapshot is a point-in-time view. Values are never modified in place; the
// uint256 pointers inside are shared between snapshots and must be treated as
// read-only.
type Snapshot struct {
	Reserves amm.Reserves
	Balances exchange.Balances
	Inputs   Inputs
	// Loaded is set once the first refresh succeeded.
	Loaded bool
	// Busy is set between ActionStarted and the action's outcome.
	Busy    bool
	Pending string
	// UnknownTx is the hash of an action whose outcome could not be observed.
	UnknownTx string
	LastTx    string
	Err       error
	Version   uint64

	// before is the view at ActionStarted, restored on failure.
	before *Snapshot
}

// Empty returns the initial snapshot.
func Empty() Snapshot {
	return Snapshot{
		Reserves: amm.NewReserves(0, 0, 0),
		Balances: exchange.ZeroBalances(),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Snapshot{v%d %s busy=%t pending=%q unknown=%q err=%v}",
		s.Version, s.Reserves, s.Busy, s.Pending, s.UnknownTx, s.Err)
}
