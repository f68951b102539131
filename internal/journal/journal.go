// Package journal keeps an append-only record of finished actions. It is
// informational: nothing reads it back to derive balances or reserves.
package journal

import (
	"context"

	"ammclient/internal/model"
)

// Sink accepts finished action records.
type Sink interface {
	Record(ctx context.Context, rec model.ActionRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, model.ActionRecord) error { return nil }
func (Nop) Close() error                                     { return nil }
