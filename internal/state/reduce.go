package state

import (
	"ammclient/internal/amm"
	"ammclient/internal/exchange"
)

// Event is anything Reduce knows how to apply.
type Event interface {
	isEvent()
}

// Refreshed carries freshly read ledger state.
type Refreshed struct {
	Reserves amm.Reserves
	Balances exchange.Balances
}

// RefreshFailed records a read error without touching the last good values.
type RefreshFailed struct {
	Err error
}

// InputsChanged replaces the user's typed amounts.
type InputsChanged struct {
	Inputs Inputs
}

// ActionStarted marks a mutation in flight.
type ActionStarted struct {
	Action string
}

// ActionSettled marks a mutation included by the ledger.
type ActionSettled struct {
	TxHash string
}

// ActionFailed marks a mutation rejected or cancelled.
type ActionFailed struct {
	Err error
}

// ActionUnknown marks a mutation whose inclusion could not be observed.
type ActionUnknown struct {
	TxHash string
	Err    error
}

func (Refreshed) isEvent()     {}
func (RefreshFailed) isEvent() {}
func (InputsChanged) isEvent() {}
func (ActionStarted) isEvent() {}
func (ActionSettled) isEvent() {}
func (ActionFailed) isEvent()  {}
func (ActionUnknown) isEvent() {}

// Reduce returns the snapshot that results from applying ev to s. It has no
// side effects and never mutates s.
func Reduce(s Snapshot, ev Event) Snapshot {
	next := s
	next.Version = s.Version + 1

	switch e := ev.(type) {
	case Refreshed:
		next.Reserves = e.Reserves.Clone()
		next.Balances = e.Balances
		next.Loaded = true
		next.Err = nil
	case RefreshFailed:
		next.Err = e.Err
	case InputsChanged:
		next.Inputs = e.Inputs
	case ActionStarted:
		before := s
		before.before = nil
		next.before = &before
		next.Busy = true
		next.Pending = e.Action
		next.UnknownTx = ""
		next.Err = nil
	case ActionSettled:
		next.Busy = false
		next.Pending = ""
		next.Inputs = Inputs{}
		next.LastTx = e.TxHash
		next.before = nil
	case ActionFailed:
		if s.before != nil {
			next.Reserves = s.before.Reserves
			next.Balances = s.before.Balances
			next.Loaded = s.before.Loaded
		}
		next.Busy = false
		next.Pending = ""
		next.Inputs = Inputs{}
		next.Err = e.Err
		next.before = nil
	case ActionUnknown:
		if s.before != nil {
			next.Reserves = s.before.Reserves
			next.Balances = s.before.Balances
		}
		next.Busy = false
		next.Pending = ""
		next.Inputs = Inputs{}
		next.UnknownTx = e.TxHash
		next.Err = e.Err
		next.before = nil
	default:
		next.Version = s.Version
	}
	return next
}
