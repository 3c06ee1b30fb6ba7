package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
)

// Sink receives trade/strategy/risk events for an owner.
type Sink interface {
	Publish(ctx context.Context, ownerID int64, event models.Event)
}

// Telegram delivers events to a single operator chat.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Publish(_ context.Context, ownerID int64, event models.Event) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	msg := fmt.Sprintf("[%s] %s\nowner=%d\n%s", event.Priority, event.Title, ownerID, event.Message)
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

// Stdout — заглушка: всё просто логирует.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Publish(_ context.Context, ownerID int64, event models.Event) {
	logger.Info("[NOTIFY] owner=%d kind=%s priority=%s %s: %s",
		ownerID, event.Kind, event.Priority, event.Title, event.Message)
}

// Module provides the Sink: Telegram when a token is configured,
// stdout otherwise.
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config) (Sink, error) {
				if cfg.Telegram.Token == "" {
					return NewStdout(), nil
				}
				return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
		),
	)
}
