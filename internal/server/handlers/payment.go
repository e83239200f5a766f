package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/domain"
)

type PaymentHandler struct {
	approvalSvc *approval.Service
	logger      zerolog.Logger
}

func NewPaymentHandler(approvalSvc *approval.Service, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		approvalSvc: approvalSvc,
		logger:      logger,
	}
}

type createSessionRequest struct {
	BookingID string          `json:"bookingId"`
	OrderData json.RawMessage `json:"orderData"`
}

type verifySMSRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	SMSCode   string `json:"smsCode"`
}

func (h *PaymentHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	// Checkout normally generates the booking id; cover clients that
	// leave it to the server.
	if req.BookingID == "" {
		req.BookingID = uuid.NewString()
	}

	_, err := h.approvalSvc.CreateSession(c.Request.Context(), req.BookingID, req.OrderData)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSession) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Session already exists for this booking",
			})
			return
		}
		h.logger.Error().Err(err).Str("booking_id", req.BookingID).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create payment session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": req.BookingID,
		"message":   "Session created, waiting for approval",
	})
}

func (h *PaymentHandler) VerifySMS(c *gin.Context) {
	var req verifySMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	err := h.approvalSvc.SubmitCode(c.Request.Context(), req.BookingID, req.SMSCode)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Code received, waiting for confirmation",
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": h.invalidStateMessage(c, req.BookingID),
		})
	case errors.Is(err, domain.ErrCodeExpired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "SMS code expired",
		})
	case errors.Is(err, domain.ErrMalformedCode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "SMS code must be 6 digits",
		})
	default:
		h.logger.Error().Err(err).Str("booking_id", req.BookingID).Msg("Failed to verify SMS code")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to verify SMS code",
		})
	}
}

func (h *PaymentHandler) invalidStateMessage(c *gin.Context, bookingID string) string {
	session, err := h.approvalSvc.Status(c.Request.Context(), bookingID)
	if err != nil {
		return "SMS not sent yet"
	}
	return fmt.Sprintf("SMS not sent yet. Current status: %s", session.Status)
}
