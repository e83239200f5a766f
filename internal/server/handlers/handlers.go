package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/internal/notify"
	"github.com/bustravel/payrelay/pkg/config"
)

type Handlers struct {
	ApprovalSvc *approval.Service
	Hub         *events.Hub
	Telegram    *notify.Telegram
	Logger      zerolog.Logger
	Config      *config.Config
}

func New(approvalSvc *approval.Service, hub *events.Hub, telegram *notify.Telegram, logger zerolog.Logger, config *config.Config) *Handlers {
	return &Handlers{
		ApprovalSvc: approvalSvc,
		Hub:         hub,
		Telegram:    telegram,
		Logger:      logger,
		Config:      config,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	paymentHandler := NewPaymentHandler(h.ApprovalSvc, h.Logger)
	eventsHandler := NewEventsHandler(h.ApprovalSvc, h.Hub, h.Logger)
	wsHandler := NewStatusSocketHandler(h.ApprovalSvc, h.Hub, h.Config.WebSocket, h.Logger)
	webhookHandler := NewWebhookHandler(h.Telegram, h.Logger)
	healthHandler := NewHealthHandler(h.ApprovalSvc, time.Now())

	router.GET("/health", healthHandler.Health)
	router.GET("/api/status", healthHandler.Status)

	router.POST("/webhook", webhookHandler.Receive)

	payment := router.Group("/api/payment")
	{
		payment.POST("/create-session", paymentHandler.CreateSession)
		payment.POST("/verify-sms", paymentHandler.VerifySMS)
		payment.GET("/events/:bookingId", eventsHandler.Stream)
		payment.GET("/ws/:bookingId", wsHandler.HandleConnection)
	}
}
