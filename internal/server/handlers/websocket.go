package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/domain"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/pkg/config"
)

// StatusSocketHandler is the WebSocket alternative to the SSE stream, for
// clients behind proxies that buffer event streams. Same events, same hub.
type StatusSocketHandler struct {
	approvalSvc *approval.Service
	hub         *events.Hub
	upgrader    gws.Upgrader
	logger      zerolog.Logger
}

func NewStatusSocketHandler(approvalSvc *approval.Service, hub *events.Hub, cfg config.WebSocketConfig, logger zerolog.Logger) *StatusSocketHandler {
	readBuffer := cfg.ReadBufferSize
	if readBuffer == 0 {
		readBuffer = 1024
	}
	writeBuffer := cfg.WriteBufferSize
	if writeBuffer == 0 {
		writeBuffer = 1024
	}

	return &StatusSocketHandler{
		approvalSvc: approvalSvc,
		hub:         hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return !cfg.CheckOrigin
			},
		},
		logger: logger,
	}
}

func (h *StatusSocketHandler) HandleConnection(c *gin.Context) {
	bookingID := c.Param("bookingId")

	session, err := h.approvalSvc.Status(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.logger.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to load session for websocket")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open status socket"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Err(err).
			Str("booking_id", bookingID).
			Msg("Failed to upgrade to WebSocket")
		return
	}

	sub := h.hub.Subscribe(bookingID)

	done := make(chan struct{})

	// Reader exists only to observe the close handshake.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			h.hub.Unsubscribe(sub)
			conn.Close()
		}()

		initial := domain.StatusEvent{
			Action:  domain.EventConnected,
			Status:  session.Status,
			Message: "Connected to payment status stream",
		}
		if err := conn.WriteJSON(initial); err != nil {
			h.logger.Err(err).
				Str("booking_id", bookingID).
				Msg("WebSocket write error")
			return
		}

		for {
			select {
			case <-done:
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Err(err).
						Str("booking_id", bookingID).
						Msg("WebSocket write error")
					return
				}
			}
		}
	}()
}
