package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"ammclient/internal/amm"
	"ammclient/internal/exchange"
	"ammclient/internal/units"
)

// native currency and the share token both use 18 decimals
const baseDecimals = 18

func newReservesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserves",
		Short: "Print the pool reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeNetwork)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.reserves()
			if err != nil {
				return err
			}
			a.printReserves(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func newBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print the account's balances and the pool reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeAccount)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.loader.Refresh(a.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			a.printBalances(out, snap.Balances)
			a.printReserves(out, snap.Reserves)
			return nil
		},
	}
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Preview the output of a swap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeNetwork)
			if err != nil {
				return err
			}
			defer a.close()

			amountText, _ := cmd.Flags().GetString("amount")
			tokenInput, _ := cmd.Flags().GetBool("token-input")
			verify, _ := cmd.Flags().GetBool("verify")

			amount, err := units.ParseUnits(amountText, a.inputDecimals(tokenInput))
			if err != nil {
				return err
			}
			r, err := a.reserves()
			if err != nil {
				return err
			}
			q, err := a.quoter.Quote(amount, !tokenInput, r)
			if err != nil {
				return fmt.Errorf("no quote available: %w", err)
			}

			out := cmd.OutOrStdout()
			a.printQuote(out, q)

			if verify {
				inR, outR := r.Base, r.Token
				if tokenInput {
					inR, outR = r.Token, r.Base
				}
				onChain, err := a.oracle.ContractQuote(a.ctx, amount, inR, outR)
				if err != nil {
					return err
				}
				if !onChain.Eq(q.Output) {
					return fmt.Errorf("local quote %s differs from contract quote %s; check fee-numerator/fee-denominator",
						q.Output.Dec(), onChain.Dec())
				}
				fmt.Fprintf(out, "verified against contract at block %d\n", r.BlockNumber)
			}
			return nil
		},
	}
	cmd.Flags().String("amount", "", "input amount in whole units")
	cmd.Flags().Bool("token-input", false, "sell the token instead of the base currency")
	cmd.Flags().Bool("verify", false, "cross-check the quote with the contract's pricing function")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newDepositPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit-preview",
		Short: "Preview the token amount and shares for a deposit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeNetwork)
			if err != nil {
				return err
			}
			defer a.close()

			base, token, err := a.depositAmounts(cmd)
			if err != nil {
				return err
			}
			r, err := a.reserves()
			if err != nil {
				return err
			}
			d, err := amm.PreviewDeposit(base, token, r)
			if err != nil {
				return fmt.Errorf("no deposit preview available: %w", err)
			}
			a.printDeposit(cmd.OutOrStdout(), d)
			return nil
		},
	}
	addDepositFlags(cmd)
	return cmd
}

func newWithdrawPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw-preview",
		Short: "Preview the amounts returned for burning shares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, modeNetwork)
			if err != nil {
				return err
			}
			defer a.close()

			shares, err := a.sharesFlag(cmd)
			if err != nil {
				return err
			}
			r, err := a.reserves()
			if err != nil {
				return err
			}
			w, err := amm.AmountsForWithdrawal(shares, r)
			if err != nil {
				return fmt.Errorf("no withdrawal preview available: %w", err)
			}
			if a.session != nil {
				held, err := a.oracle.BalanceOf(a.ctx, amm.AssetShare, a.account(), nil)
				if err != nil {
					return err
				}
				if err := amm.CheckShareBalance(shares, held); err != nil {
					return fmt.Errorf("account holds %s shares: %w", units.FormatUnits(held, a.shareDecimals()), err)
				}
			}
			a.printWithdrawal(cmd.OutOrStdout(), w)
			return nil
		},
	}
	cmd.Flags().String("shares", "", "liquidity shares to burn in whole units")
	_ = cmd.MarkFlagRequired("shares")
	return cmd
}

func addDepositFlags(cmd *cobra.Command) {
	cmd.Flags().String("base", "", "base currency to deposit in whole units")
	cmd.Flags().String("token-amount", "", "token to deposit in whole units; only used for the first deposit")
	_ = cmd.MarkFlagRequired("base")
}

func (a *app) depositAmounts(cmd *cobra.Command) (*uint256.Int, *uint256.Int, error) {
	baseText, _ := cmd.Flags().GetString("base")
	tokenText, _ := cmd.Flags().GetString("token-amount")
	base, err := units.ParseUnits(baseText, baseDecimals)
	if err != nil {
		return nil, nil, fmt.Errorf("base: %w", err)
	}
	if tokenText == "" {
		return base, nil, nil
	}
	token, err := units.ParseUnits(tokenText, a.meta.Decimals)
	if err != nil {
		return nil, nil, fmt.Errorf("token-amount: %w", err)
	}
	return base, token, nil
}

func (a *app) sharesFlag(cmd *cobra.Command) (*uint256.Int, error) {
	text, _ := cmd.Flags().GetString("shares")
	shares, err := units.ParseUnits(text, a.shareDecimals())
	if err != nil {
		return nil, fmt.Errorf("shares: %w", err)
	}
	return shares, nil
}

func (a *app) inputDecimals(tokenInput bool) uint8 {
	if tokenInput {
		return a.meta.Decimals
	}
	return baseDecimals
}

func (a *app) shareDecimals() uint8 {
	meta, err := a.oracle.ShareMeta(a.ctx)
	if err != nil {
		return baseDecimals
	}
	return meta.Decimals
}

func (a *app) tokenSymbol() string {
	if a.meta.Symbol != "" {
		return a.meta.Symbol
	}
	return "TOKEN"
}

func (a *app) printReserves(w io.Writer, r amm.Reserves) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "block\t%d\n", r.BlockNumber)
	fmt.Fprintf(tw, "base reserve\t%s\n", units.FormatUnits(r.Base, baseDecimals))
	fmt.Fprintf(tw, "%s reserve\t%s\n", a.tokenSymbol(), units.FormatUnits(r.Token, a.meta.Decimals))
	fmt.Fprintf(tw, "total shares\t%s\n", units.FormatUnits(r.TotalShares, a.shareDecimals()))
	if r.IsEmpty() {
		fmt.Fprintf(tw, "price\tempty pool\n")
	} else {
		fmt.Fprintf(tw, "price\t%s %s per base\n", units.Price(r.Base, r.Token, baseDecimals, a.meta.Decimals, 6), a.tokenSymbol())
	}
	tw.Flush()
}

func (a *app) printBalances(w io.Writer, b exchange.Balances) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "account\t%s\n", a.account().Hex())
	fmt.Fprintf(tw, "base\t%s\n", units.FormatUnits(b.Base, baseDecimals))
	fmt.Fprintf(tw, "%s\t%s\n", a.tokenSymbol(), units.FormatUnits(b.Token, a.meta.Decimals))
	fmt.Fprintf(tw, "shares\t%s\n", units.FormatUnits(b.Shares, a.shareDecimals()))
	tw.Flush()
}

func (a *app) printQuote(w io.Writer, q amm.Quote) {
	inDec, outDec := baseDecimals, int(a.meta.Decimals)
	inSym, outSym := "base", a.tokenSymbol()
	if !q.BaseInput {
		inDec, outDec = outDec, inDec
		inSym, outSym = outSym, inSym
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "input\t%s %s\n", units.FormatUnits(q.Input, uint8(inDec)), inSym)
	fmt.Fprintf(tw, "output\t%s %s\n", units.FormatUnits(q.Output, uint8(outDec)), outSym)
	fmt.Fprintf(tw, "min output\t%s %s (%d bps)\n",
		units.FormatUnits(amm.MinOutput(q.Output, a.cfg.SlippageBps), uint8(outDec)), outSym, a.cfg.SlippageBps)
	fmt.Fprintf(tw, "fee\t%s\n", a.quoter.Fee())
	tw.Flush()
}

func (a *app) printDeposit(w io.Writer, d amm.Deposit) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "base\t%s\n", units.FormatUnits(d.Base, baseDecimals))
	fmt.Fprintf(tw, "%s\t%s\n", a.tokenSymbol(), units.FormatUnits(d.Token, a.meta.Decimals))
	fmt.Fprintf(tw, "shares minted\t%s\n", units.FormatUnits(d.Shares, a.shareDecimals()))
	if d.Initial {
		fmt.Fprintf(tw, "note\tfirst deposit sets the price\n")
	}
	tw.Flush()
}

func (a *app) printWithdrawal(w io.Writer, wd amm.Withdrawal) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "shares burned\t%s\n", units.FormatUnits(wd.Shares, a.shareDecimals()))
	fmt.Fprintf(tw, "base\t%s\n", units.FormatUnits(wd.Base, baseDecimals))
	fmt.Fprintf(tw, "%s\t%s\n", a.tokenSymbol(), units.FormatUnits(wd.Token, a.meta.Decimals))
	tw.Flush()
}
