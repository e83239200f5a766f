package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bustravel/payrelay/internal/approval"
)

type HealthHandler struct {
	approvalSvc *approval.Service
	startedAt   time.Time
}

func NewHealthHandler(approvalSvc *approval.Service, startedAt time.Time) *HealthHandler {
	return &HealthHandler{
		approvalSvc: approvalSvc,
		startedAt:   startedAt,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).String(),
	})
}

func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    "BusTravel Payment Relay",
		"version":   "2.1.0",
		"endpoints": gin.H{
			"webhook":       "/webhook",
			"health":        "/health",
			"createSession": "/api/payment/create-session",
			"verifySMS":     "/api/payment/verify-sms",
			"events":        "/api/payment/events/:bookingId",
			"statusSocket":  "/api/payment/ws/:bookingId",
		},
		"activeSessions": h.approvalSvc.ActiveSessions(c.Request.Context()),
	})
}
