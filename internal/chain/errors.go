package chain

import "errors"

var (
	// ErrTransactionRejected means the ledger declined the transaction, either
	// at submission or by including it with a failed status.
	ErrTransactionRejected = errors.New("transaction rejected")
	// ErrUserCancelled means the signing prompt was dismissed.
	ErrUserCancelled = errors.New("user cancelled")
)
