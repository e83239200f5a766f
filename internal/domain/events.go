package domain

// EventAction identifies a status update pushed to the client for a booking.
type EventAction string

const (
	EventConnected            EventAction = "connected"
	EventSMSSent              EventAction = "sms_sent"
	EventPaymentDeclined      EventAction = "payment_declined"
	EventAwaitingConfirmation EventAction = "awaiting_confirmation"
	EventCodeRejected         EventAction = "code_rejected"
	EventPaymentVerified      EventAction = "payment_verified"
)

// StatusEvent is the wire form of a client push message. Status is only set
// on the initial connected event; Message is display text for the client.
type StatusEvent struct {
	Action  EventAction   `json:"action"`
	Status  SessionStatus `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
}
