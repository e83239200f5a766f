// Package notify abstracts the channel used to reach the human
// administrator who approves payments. Delivery is best-effort by design:
// a missed notification is recoverable because the administrator remains
// the source of truth and can re-check manually.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Action is one interactive control attached to an admin message. Token
// travels through the channel and comes back verbatim when the
// administrator presses the control.
type Action struct {
	Label string
	Token string
}

// AdminEvent is a parsed administrator interaction: which action was
// pressed, for which booking, and the channel-level interaction id used
// for acknowledgement.
type AdminEvent struct {
	Action        string
	BookingID     string
	InteractionID string
}

// Notifier sends text and controls to the administrator.
type Notifier interface {
	// Notify delivers a message, optionally with interactive controls.
	// Failures are reported but callers treat them as non-fatal.
	Notify(ctx context.Context, text string, actions ...Action) error

	// Acknowledge gives lightweight feedback on an interaction without
	// altering any session state.
	Acknowledge(ctx context.Context, interactionID, text string) error
}

// ActionToken encodes an action for a booking into the form carried by
// the channel: "action:bookingId".
func ActionToken(action, bookingID string) string {
	return action + ":" + bookingID
}

// ParseActionToken splits a callback token back into action and booking
// id. Both parts must be non-empty.
func ParseActionToken(token string) (action, bookingID string, err error) {
	action, bookingID, ok := strings.Cut(token, ":")
	if !ok || action == "" || bookingID == "" {
		return "", "", fmt.Errorf("malformed action token %q", token)
	}
	return action, bookingID, nil
}
