package delivery

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ran-group/shiftdesk/internal/domain/profiles"
)

// Sender is the chat side of delivery; Telegram in production, a fake in tests.
type Sender interface {
	SendText(ctx context.Context, chatID int64, html string) error
	SendPhoto(ctx context.Context, chatID int64, caption string, data []byte) error
}

// Telegram posts report texts and photos to per-branch group chats, and
// pings the admin chat about new account requests.
type Telegram struct {
	api       *tgbotapi.BotAPI
	adminChat int64
	log       *slog.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, adminChatID int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, adminChat: adminChatID, log: log}
}

func (t *Telegram) SendText(_ context.Context, chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

func (t *Telegram) SendPhoto(_ context.Context, chatID int64, caption string, data []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "report.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := t.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// NotifyNewAccount is best-effort: a lost notification only delays review,
// the account is still visible in the pending list.
func (t *Telegram) NotifyNewAccount(ctx context.Context, p *profiles.Profile, email string) {
	if t.adminChat == 0 {
		return
	}
	if err := t.SendText(ctx, t.adminChat, newAccountText(p, email)); err != nil {
		t.log.Error("admin notify failed", "err", err)
	}
}

// newAccountText builds the admin ping. Name and email are user input and
// must not leak markup into the HTML parse mode.
func newAccountText(p *profiles.Profile, email string) string {
	return fmt.Sprintf("<b>New account request</b>\nName: %s\nEmail: %s\nBranch: %s\nRole: %s",
		html.EscapeString(p.FullName), html.EscapeString(email), html.EscapeString(p.Branch), p.Role)
}
