package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammclient/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS action_journal (
	id BIGSERIAL PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	account TEXT NOT NULL,
	action TEXT NOT NULL,
	state TEXT NOT NULL,
	base_amount TEXT NOT NULL DEFAULT '',
	token_amount TEXT NOT NULL DEFAULT '',
	shares TEXT NOT NULL DEFAULT '',
	min_output TEXT NOT NULL DEFAULT '',
	approval_tx TEXT NOT NULL DEFAULT '',
	action_tx TEXT NOT NULL DEFAULT '',
	block_number BIGINT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS action_journal_account_idx ON action_journal (chain_id, account, id DESC);
CREATE TABLE IF NOT EXISTS action_transfers (
	action_id BIGINT NOT NULL REFERENCES action_journal (id) ON DELETE CASCADE,
	log_index BIGINT NOT NULL,
	token TEXT NOT NULL,
	from_address TEXT NOT NULL,
	to_address TEXT NOT NULL,
	amount TEXT NOT NULL,
	PRIMARY KEY (action_id, log_index)
);
`

// Store journals actions to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the journal tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Record inserts rec and its transfers in one transaction.
func (s *Store) Record(ctx context.Context, rec model.ActionRecord) error {
	startedAt, err := parseTime(rec.StartedAt)
	if err != nil {
		return fmt.Errorf("started_at: %w", err)
	}
	finishedAt, err := parseTime(rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("finished_at: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO action_journal (
				chain_id, account, action, state, base_amount, token_amount, shares, min_output,
				approval_tx, action_tx, block_number, error, started_at, finished_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id
		`,
			int64(rec.ChainID),
			rec.Account,
			rec.Action,
			rec.State,
			rec.BaseAmount,
			rec.TokenAmount,
			rec.Shares,
			rec.MinOutput,
			rec.ApprovalTx,
			rec.ActionTx,
			int64(rec.BlockNumber),
			rec.Error,
			startedAt,
			finishedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
		if len(rec.Transfers) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, t := range rec.Transfers {
			batch.Queue(`
				INSERT INTO action_transfers (action_id, log_index, token, from_address, to_address, amount)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (action_id, log_index) DO NOTHING
			`, id, int64(t.LogIndex), t.Token, t.From, t.To, t.Amount)
		}
		br := tx.SendBatch(ctx, batch)
		for range rec.Transfers {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert transfer: %w", err)
			}
		}
		return br.Close()
	})
}

// Recent returns up to limit records for chainID, newest first.
func (s *Store) Recent(ctx context.Context, chainID uint64, limit int) ([]model.ActionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain_id, account, action, state, base_amount, token_amount, shares, min_output,
			approval_tx, action_tx, block_number, error, started_at, finished_at
		FROM action_journal
		WHERE chain_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, int64(chainID), limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var (
		records []model.ActionRecord
		ids     []int64
		index   = map[int64]int{}
	)
	for rows.Next() {
		var (
			id, chain, block      int64
			startedAt, finishedAt time.Time
			rec                   model.ActionRecord
		)
		if err := rows.Scan(&id, &chain, &rec.Account, &rec.Action, &rec.State, &rec.BaseAmount,
			&rec.TokenAmount, &rec.Shares, &rec.MinOutput, &rec.ApprovalTx, &rec.ActionTx, &block,
			&rec.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.ChainID = uint64(chain)
		rec.BlockNumber = uint64(block)
		rec.StartedAt = startedAt.UTC().Format(time.RFC3339)
		rec.FinishedAt = finishedAt.UTC().Format(time.RFC3339)
		index[id] = len(records)
		ids = append(ids, id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return records, nil
	}

	trows, err := s.pool.Query(ctx, `
		SELECT action_id, log_index, token, from_address, to_address, amount
		FROM action_transfers
		WHERE action_id = ANY($1)
		ORDER BY action_id, log_index
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var (
			actionID, logIndex int64
			t                  model.TransferEvent
		)
		if err := trows.Scan(&actionID, &logIndex, &t.Token, &t.From, &t.To, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.LogIndex = uint64(logIndex)
		if i, ok := index[actionID]; ok {
			records[i].Transfers = append(records[i].Transfers, t)
		}
	}
	return records, trows.Err()
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, v)
}
