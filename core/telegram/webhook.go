package telegram

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/loginbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// WebhookHandler decodes a Telegram update and hands it to h.
// It answers {"ok":true} with 200 when h succeeds and {"ok":false} with 500 otherwise.
func WebhookHandler(h UpdateHandler) gin.HandlerFunc {
	log := logger.Component(logger.CompTG)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var upd tele.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			logger.LogEvent(ctx, log, slog.LevelWarn, "webhook.decode",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
			return
		}
		if err := h.HandleUpdate(ctx, upd); err != nil {
			logger.LogEvent(ctx, log, slog.LevelError, "webhook.handle",
				slog.String("status", "fail"),
				slog.Int("update_id", upd.ID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
