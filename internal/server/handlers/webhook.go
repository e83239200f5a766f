package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/notify"
)

// WebhookHandler receives Telegram updates when the bot runs in webhook
// mode. Telegram retries failed deliveries, so the handler always answers
// 200 once the payload parses.
type WebhookHandler struct {
	telegram *notify.Telegram
	logger   zerolog.Logger
}

func NewWebhookHandler(telegram *notify.Telegram, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		telegram: telegram,
		logger:   logger,
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn().Err(err).Msg("Ignoring malformed webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	if h.telegram == nil {
		h.logger.Warn().Msg("Webhook update received but no bot is configured")
		c.Status(http.StatusOK)
		return
	}

	h.telegram.HandleUpdate(c.Request.Context(), update)
	c.Status(http.StatusOK)
}
