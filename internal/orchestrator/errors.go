package orchestrator

import "errors"

var (
	// ErrBusy is returned when an action is requested while another is in flight.
	ErrBusy = errors.New("another action is in progress")
	// ErrConfirmationUnknown is returned when inclusion could not be observed
	// before the confirmation timeout. The transaction may still be mined.
	ErrConfirmationUnknown = errors.New("confirmation unknown")
	// ErrNothingToRetry is returned by Retry unless the last action failed.
	ErrNothingToRetry = errors.New("nothing to retry")
	ErrInvalidIntent  = errors.New("invalid intent")
)
