package telegram

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	coreconfig "github.com/m3rciful/loginbot/core/config"
	"github.com/m3rciful/loginbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactToken hides bot tokens embedded in Bot API URLs.
func RedactToken(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}

// BuildPoller returns the long poller used in longpoll mode.
func BuildPoller(timeoutSeconds int) *tele.LongPoller {
	timeout := defaultLongPollTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &tele.LongPoller{
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	}
}

// NewBot builds the Bot API client. It calls getMe, so the token is verified here.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: BuildPoller(cfg.Telegram.LongPollTimeoutSeconds),
		Client: BuildHTTPClient(),
		OnError: func(err error, c tele.Context) {
			attrs := []any{slog.String("event", "tg.error"), slog.String("err", RedactToken(err.Error()))}
			if c != nil {
				attrs = append(attrs, slog.Int("update_id", c.Update().ID))
			}
			logger.Component(logger.CompTG).Error("telebot error", attrs...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %s", RedactToken(err.Error()))
	}
	logger.Component(logger.CompTG).Info("bot ready",
		slog.String("event", "tg.bot"),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	)
	return bot, nil
}
