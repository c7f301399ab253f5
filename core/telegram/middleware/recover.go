package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

// Recover turns a handler panic into an error so the update is answered with a failure.
func Recover(next tg.HandlerFunc) tg.HandlerFunc {
	return func(ctx context.Context, ev *tg.Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, logger.CompTG, "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic recovered: %v", r)
			}
		}()
		return next(ctx, ev)
	}
}
