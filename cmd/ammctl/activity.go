package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammclient/internal/journal"
	"ammclient/internal/units"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List the account's token and share transfers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeAccount)
			if err != nil {
				return err
			}
			defer a.close()

			from, _ := cmd.Flags().GetUint64("from")
			to, _ := cmd.Flags().GetUint64("to")
			batchSize, _ := cmd.Flags().GetUint64("batch-size")
			cursorPath, _ := cmd.Flags().GetString("cursor")
			account := a.account()

			if err := a.verify(); err != nil {
				return err
			}

			var cursor *journal.Cursor
			if cursorPath != "" {
				cursor = journal.NewCursor(cursorPath)
				if !cmd.Flags().Changed("from") {
					next, ok, err := cursor.Next(a.cfg.ChainID, account)
					if err != nil {
						return err
					}
					if ok {
						from = next
					}
				}
			}
			if to == 0 {
				latest, err := a.client.LatestBlockNumber(a.ctx)
				if err != nil {
					return fmt.Errorf("fetch latest block: %w", err)
				}
				to = latest
			}
			if from > to {
				a.logger.Info("activity up to date", zap.Uint64("next_block", from))
				return nil
			}

			transfers, err := a.oracle.Activity(a.ctx, account, from, to, batchSize)
			if err != nil {
				return err
			}
			if cursor != nil {
				if err := cursor.Advance(a.cfg.ChainID, account, to); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BLOCK\tTX\tASSET\tDIRECTION\tAMOUNT")
			for _, t := range transfers {
				decimals, symbol := a.meta.Decimals, a.tokenSymbol()
				if common.HexToAddress(t.Token) == a.cfg.ExchangeAddress() {
					decimals, symbol = a.shareDecimals(), "shares"
				}
				direction := "in"
				if strings.EqualFold(t.From, account.Hex()) {
					direction = "out"
				}
				amount, err := units.ParseUnits(t.Amount, 0)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.BlockNumber, t.TxHash, symbol, direction, units.FormatUnits(amount, decimals))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per log query")
	cmd.Flags().String("cursor", "", "file remembering the next block to scan per account")
	return cmd
}
