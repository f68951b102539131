package journal

import (
	"context"
	"fmt"

	"ammclient/internal/journal/postgres"
)

// Kinds accepted by Open.
const (
	KindNone     = "none"
	KindJSONL    = "jsonl"
	KindPostgres = "postgres"
)

// Open builds the sink named by kind. Postgres sinks get their schema created.
func Open(ctx context.Context, kind, path, dsn string) (Sink, error) {
	switch kind {
	case "", KindNone:
		return Nop{}, nil
	case KindJSONL:
		if path == "" {
			return nil, fmt.Errorf("journal path is required for %s journal", kind)
		}
		return NewJSONL(path), nil
	case KindPostgres:
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown journal kind %q", kind)
	}
}
