package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ammclient/internal/config"
	"ammclient/internal/journal"
	"ammclient/internal/journal/postgres"
	"ammclient/internal/model"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent journaled actions",
		RunE:  runJournal,
	}
	cmd.Flags().Int("limit", 20, "number of entries to show")
	cmd.Flags().String("journal", "jsonl", "journal to read (jsonl, postgres)")
	cmd.Flags().String("journal-path", "./data/journal.jsonl", "JSONL journal path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	return cmd
}

func runJournal(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records []model.ActionRecord
	switch cfg.Journal {
	case journal.KindJSONL:
		records, err = journal.ReadJSONL(cfg.JournalPath, limit)
	case journal.KindPostgres:
		var store *postgres.Store
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		records, err = store.Recent(ctx, cfg.ChainID, limit)
	default:
		return fmt.Errorf("journal %q cannot be listed", cfg.Journal)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}
