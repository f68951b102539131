package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "Swap and manage liquidity on a constant-product exchange",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "JSON-RPC URL")
	flags.Uint64("chain-id", 5, "required network id")
	flags.String("exchange", "", "exchange contract address")
	flags.String("token", "", "paired token contract address")
	flags.String("account", "", "account to read balances for when no key is configured")
	flags.String("private-key", "", "hex private key used to sign transactions")
	flags.Uint64("fee-numerator", 1, "swap fee numerator")
	flags.Uint64("fee-denominator", 100, "swap fee denominator")
	flags.Uint64("slippage-bps", 0, "accepted output shortfall in basis points")
	flags.Int("max-retries", 5, "maximum retry attempts for reads")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Uint("token-decimals", 18, "token decimals when the contract cannot be read")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newReservesCmd(), newBalancesCmd(), newQuoteCmd(), newDepositPreviewCmd(), newWithdrawPreviewCmd())
	root.AddCommand(newSwapCmd(), newAddLiquidityCmd(), newRemoveLiquidityCmd())
	root.AddCommand(newActivityCmd(), newJournalCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("confirm-timeout", 2*time.Minute, "stop waiting for inclusion after this long")
	cmd.Flags().Bool("yes", false, "sign without asking for confirmation")
	cmd.Flags().String("journal", "none", "action journal (none, jsonl, postgres)")
	cmd.Flags().String("journal-path", "./data/journal.jsonl", "JSONL journal path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("telegram-token", "", "Telegram bot token for action notifications")
	cmd.Flags().Int64("telegram-chat-id", 0, "Telegram chat id for action notifications")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
