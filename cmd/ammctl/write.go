package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
	"ammclient/internal/journal"
	"ammclient/internal/notify"
	"ammclient/internal/orchestrator"
	"ammclient/internal/state"
	"ammclient/internal/units"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap base currency for the token or back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeSigner)
			if err != nil {
				return err
			}
			defer a.close()

			amountText, _ := cmd.Flags().GetString("amount")
			tokenInput, _ := cmd.Flags().GetBool("token-input")
			amount, err := units.ParseUnits(amountText, a.inputDecimals(tokenInput))
			if err != nil {
				return err
			}

			snap, err := a.loader.Refresh(a.ctx)
			if err != nil {
				return err
			}
			q, err := a.quoter.Quote(amount, !tokenInput, snap.Reserves)
			if err != nil {
				return fmt.Errorf("no quote available: %w", err)
			}
			out := cmd.OutOrStdout()
			a.printQuote(out, q)

			intent := orchestrator.Intent{
				Action:     orchestrator.ActionSwap,
				TokenInput: tokenInput,
				MinOutput:  amm.MinOutput(q.Output, a.cfg.SlippageBps),
			}
			if tokenInput {
				intent.TokenAmount = amount
			} else {
				intent.BaseAmount = amount
			}
			return a.execute(cmd, intent)
		},
	}
	cmd.Flags().String("amount", "", "input amount in whole units")
	cmd.Flags().Bool("token-input", false, "sell the token instead of the base currency")
	_ = cmd.MarkFlagRequired("amount")
	addWriteFlags(cmd)
	return cmd
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit base currency and the paired token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeSigner)
			if err != nil {
				return err
			}
			defer a.close()

			base, token, err := a.depositAmounts(cmd)
			if err != nil {
				return err
			}
			snap, err := a.loader.Refresh(a.ctx)
			if err != nil {
				return err
			}
			if token != nil && !snap.Reserves.IsEmpty() {
				a.logger.Warn("token-amount ignored; the pool ratio sets the paired amount")
			}
			d, err := amm.PreviewDeposit(base, token, snap.Reserves)
			if err != nil {
				return fmt.Errorf("no deposit preview available: %w", err)
			}
			a.printDeposit(cmd.OutOrStdout(), d)

			return a.execute(cmd, orchestrator.Intent{
				Action:      orchestrator.ActionAddLiquidity,
				BaseAmount:  d.Base,
				TokenAmount: d.Token,
			})
		},
	}
	addDepositFlags(cmd)
	addWriteFlags(cmd)
	return cmd
}

func newRemoveLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn liquidity shares for base currency and the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeSigner)
			if err != nil {
				return err
			}
			defer a.close()

			shares, err := a.sharesFlag(cmd)
			if err != nil {
				return err
			}
			snap, err := a.loader.Refresh(a.ctx)
			if err != nil {
				return err
			}
			w, err := amm.AmountsForWithdrawal(shares, snap.Reserves)
			if err != nil {
				return fmt.Errorf("no withdrawal preview available: %w", err)
			}
			a.printWithdrawal(cmd.OutOrStdout(), w)

			return a.execute(cmd, orchestrator.Intent{
				Action: orchestrator.ActionRemoveLiquidity,
				Shares: shares,
			})
		},
	}
	cmd.Flags().String("shares", "", "liquidity shares to burn in whole units")
	_ = cmd.MarkFlagRequired("shares")
	addWriteFlags(cmd)
	return cmd
}

func (a *app) execute(cmd *cobra.Command, intent orchestrator.Intent) error {
	orch, err := a.newOrchestrator()
	if err != nil {
		return err
	}
	a.store.Dispatch(state.InputsChanged{Inputs: state.Inputs{
		Action:      string(intent.Action),
		BaseAmount:  intent.BaseAmount,
		TokenAmount: intent.TokenAmount,
		Shares:      intent.Shares,
		TokenInput:  intent.TokenInput,
	}})

	res, err := orch.Execute(a.ctx, intent)
	out := cmd.OutOrStdout()
	a.printResult(out, res)
	if errors.Is(err, orchestrator.ErrConfirmationUnknown) {
		fmt.Fprintf(out, "the transaction may still be mined; check %s before retrying\n", res.ActionTx.Hex())
	}
	return err
}

func (a *app) newOrchestrator() (*orchestrator.Orchestrator, error) {
	signer, err := a.session.Signer(a.ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := exchange.NewLedger(a.client, a.cfg.ExchangeAddress(), a.cfg.TokenAddress(), signer, a.logger)
	if err != nil {
		return nil, err
	}

	sink, err := journal.Open(a.ctx, a.cfg.Journal, a.cfg.JournalPath, a.cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = sink.Close() })
	a.logger.Debug("journal opened",
		zap.String("kind", a.cfg.Journal),
		zap.String("path", a.cfg.JournalPath),
		zap.String("pg_dsn", redactDSN(a.cfg.PGDSN)),
	)

	opts := orchestrator.Options{
		ChainID:        a.cfg.ChainID,
		Exchange:       a.cfg.ExchangeAddress(),
		Token:          a.cfg.TokenAddress(),
		ConfirmTimeout: a.cfg.ConfirmTimeout,
		Store:          a.store,
		Journal:        sink,
		Logger:         a.logger,
		Observer: func(tr orchestrator.Transition) {
			line := fmt.Sprintf("%s: %s -> %s", tr.Intent.Action, tr.From, tr.To)
			if tr.TxHash != (common.Hash{}) {
				line += " " + tr.TxHash.Hex()
			}
			fmt.Fprintln(os.Stderr, line)
		},
	}
	if a.cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
		if err != nil {
			a.logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			opts.Notifier = tg
		}
	}
	return orchestrator.New(ledger, a.loader, a.oracle, a.session, opts), nil
}

func (a *app) printResult(w io.Writer, res orchestrator.Result) {
	fmt.Fprintf(w, "state: %s\n", res.State)
	if res.ApprovalTx != (common.Hash{}) {
		fmt.Fprintf(w, "approval tx: %s\n", res.ApprovalTx.Hex())
	}
	if res.ActionTx != (common.Hash{}) {
		fmt.Fprintf(w, "tx: %s\n", res.ActionTx.Hex())
	}
	for _, t := range res.Transfers {
		decimals := a.meta.Decimals
		symbol := a.tokenSymbol()
		if common.HexToAddress(t.Token) == a.cfg.ExchangeAddress() {
			decimals, symbol = a.shareDecimals(), "shares"
		}
		amount, err := units.ParseUnits(t.Amount, 0)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "transfer: %s %s %s -> %s\n", units.FormatUnits(amount, decimals), symbol, t.From, t.To)
	}
	if res.State == orchestrator.Settled && res.Snapshot.Loaded {
		a.printBalances(w, res.Snapshot.Balances)
		a.printReserves(w, res.Snapshot.Reserves)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
