package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram sends notices to one chat
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram connects a bot with token and targets chatID
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log.With().Str("component", "notify").Logger()}, nil
}

func (t *Telegram) Notify(_ context.Context, n Notice) {
	msg := tgbotapi.NewMessage(t.chatID, formatMessage(n))
	if _, err := t.api.Send(msg); err != nil {
		t.log.Warn().Err(err).Str("kind", n.Kind).Msg("telegram send failed")
	}
}

func formatMessage(n Notice) string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Body
}
