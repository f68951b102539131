package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"ammclient/internal/chain"
	"ammclient/internal/exchange"
	"ammclient/internal/units"
)

// confirmFunc prompts on the terminal before every signature unless --yes is set.
func (a *app) confirmFunc() exchange.ConfirmFunc {
	if a.cfg.Yes {
		return nil
	}
	reader := bufio.NewReader(os.Stdin)
	return func(ctx context.Context, req exchange.SignRequest) error {
		fmt.Fprintf(os.Stderr, "\nsign %s on %s", req.Method, req.To.Hex())
		if req.Value != nil && !req.Value.IsZero() {
			fmt.Fprintf(os.Stderr, " sending %s", units.FormatUnits(req.Value, baseDecimals))
		}
		if len(req.Args) > 0 {
			fmt.Fprintf(os.Stderr, " args [%s]", strings.Join(req.Args, ", "))
		}
		fmt.Fprint(os.Stderr, "? [y/N] ")

		answer := make(chan string, 1)
		go func() {
			line, _ := reader.ReadString('\n')
			answer <- strings.ToLower(strings.TrimSpace(line))
		}()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", chain.ErrUserCancelled, ctx.Err())
		case line := <-answer:
			if line == "y" || line == "yes" {
				return nil
			}
			return chain.ErrUserCancelled
		}
	}
}
