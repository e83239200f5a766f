package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/domain"
	"github.com/bustravel/payrelay/internal/events"
)

// EventsHandler streams status updates to the payment page over
// Server-Sent Events, the primary push transport.
type EventsHandler struct {
	approvalSvc *approval.Service
	hub         *events.Hub
	logger      zerolog.Logger
}

func NewEventsHandler(approvalSvc *approval.Service, hub *events.Hub, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		approvalSvc: approvalSvc,
		hub:         hub,
		logger:      logger,
	}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	bookingID := c.Param("bookingId")

	session, err := h.approvalSvc.Status(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.logger.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to load session for event stream")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open event stream"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(bookingID)
	defer h.hub.Unsubscribe(sub)

	// Tell the client where the session stands right now; everything
	// after this is incremental.
	h.writeEvent(c, flusher, domain.StatusEvent{
		Action:  domain.EventConnected,
		Status:  session.Status,
		Message: "Connected to payment status stream",
	})

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			h.writeEvent(c, flusher, event)
		}
	}
}

func (h *EventsHandler) writeEvent(c *gin.Context, flusher http.Flusher, event domain.StatusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal status event")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	flusher.Flush()
}
