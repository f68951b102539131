package orchestrator

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is a step of one user action.
type State int

const (
	Idle State = iota
	AwaitingApproval
	AwaitingConfirmation
	Settled
	Failed
	// Unknown means the client stopped waiting before the ledger answered.
	Unknown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingApproval:
		return "awaiting_approval"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case Settled:
		return "settled"
	case Failed:
		return "failed"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition follows without a new action.
func (s State) Terminal() bool {
	return s == Settled || s == Failed || s == Unknown
}

// Transition is delivered to the observer on every state change.
type Transition struct {
	From   State
	To     State
	Intent Intent
	TxHash common.Hash
	Err    error
	At     time.Time
}

// Observer receives transitions synchronously, in order.
type Observer func(Transition)
