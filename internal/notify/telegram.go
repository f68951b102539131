// Package notify announces finished actions to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ammclient/internal/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts one message per finished action.
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram authenticates the bot token against the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify sends rec to the configured chat.
func (t *Telegram) Notify(ctx context.Context, rec model.ActionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatRecord(rec))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatRecord renders rec as Telegram HTML.
func FormatRecord(rec model.ActionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> %s\n", html.EscapeString(rec.Action), html.EscapeString(strings.ToUpper(rec.State)))
	fmt.Fprintf(&b, "account: <code>%s</code>\n", html.EscapeString(rec.Account))
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: <code>%s</code>\n", label, html.EscapeString(value))
		}
	}
	line("base", rec.BaseAmount)
	line("token", rec.TokenAmount)
	line("shares", rec.Shares)
	line("min out", rec.MinOutput)
	line("approval tx", rec.ApprovalTx)
	line("tx", rec.ActionTx)
	if rec.BlockNumber > 0 {
		fmt.Fprintf(&b, "block: %d\n", rec.BlockNumber)
	}
	for _, t := range rec.Transfers {
		fmt.Fprintf(&b, "transfer %s: %s -> %s <code>%s</code>\n",
			html.EscapeString(shortAddress(t.Token)), html.EscapeString(shortAddress(t.From)),
			html.EscapeString(shortAddress(t.To)), html.EscapeString(t.Amount))
	}
	line("error", rec.Error)
	return strings.TrimRight(b.String(), "\n")
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
