package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter posts operator alerts to a telegram channel. Without a bot token alerts
// are only logged.
type Alerter struct {
	bot       sender
	channelId int64
	logger    *zap.Logger
}

func NewAlerter(token string, channelId int64, logger *zap.Logger) (*Alerter, error) {
	a := &Alerter{channelId: channelId, logger: logger}
	if token == "" {
		return a, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	a.bot = bot
	return a, nil
}

func (a *Alerter) Alert(ctx context.Context, message string) error {
	a.logger.Warn("saga_alert", zap.String("message", message))
	if a.bot == nil {
		return nil
	}
	_, err := a.bot.Send(tgbotapi.NewMessage(a.channelId, message))
	return errors.Wrap(err, "telegram send")
}
