package domain

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	StatusPendingApproval      SessionStatus = "pending_approval"
	StatusSMSSent              SessionStatus = "sms_sent"
	StatusAwaitingConfirmation SessionStatus = "awaiting_confirmation"
	StatusVerified             SessionStatus = "verified"
	StatusDeclined             SessionStatus = "declined"
	StatusExpired              SessionStatus = "expired"
)

// Terminal reports whether no further transitions can occur from s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusVerified, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// PaymentSession tracks one booking's payment-approval progress. The order
// payload is opaque to the relay; it is rendered into the admin notification
// and otherwise passed through unexamined.
type PaymentSession struct {
	BookingID       string          `json:"booking_id"`
	OrderData       json.RawMessage `json:"order_data,omitempty"`
	Status          SessionStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	SMSCode         string          `json:"sms_code,omitempty"`
	SMSTimestamp    time.Time       `json:"sms_timestamp,omitempty"`
	ReceivedCode    string          `json:"received_code,omitempty"`
	CodeSubmittedAt time.Time       `json:"code_submitted_at,omitempty"`
}
