// Package events fans out payment status updates to the browser sessions
// watching a booking. Transports (SSE, WebSocket) subscribe here and are
// adapter details; the hub itself only knows booking ids and events.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/domain"
)

const subscriberBuffer = 16

// Subscriber is one connected client channel for a booking. Events arrive
// on Events(); the owner must call Hub.Unsubscribe when the transport
// disconnects.
type Subscriber struct {
	bookingID string
	ch        chan domain.StatusEvent
}

func (s *Subscriber) BookingID() string { return s.bookingID }

func (s *Subscriber) Events() <-chan domain.StatusEvent { return s.ch }

// Hub is a booking-keyed publish/subscribe broker. Publish delivers
// synchronously to the subscriber set known at call time, so "session
// mutated, then clients notified" holds for any later request. Zero
// subscribers is normal (client not yet connected); transient duplicates
// on reconnect all receive the broadcast.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(bookingID string) *Subscriber {
	sub := &Subscriber{
		bookingID: bookingID,
		ch:        make(chan domain.StatusEvent, subscriberBuffer),
	}

	h.mu.Lock()
	if h.subs[bookingID] == nil {
		h.subs[bookingID] = make(map[*Subscriber]struct{})
	}
	h.subs[bookingID][sub] = struct{}{}
	count := len(h.subs[bookingID])
	h.mu.Unlock()

	h.logger.Info().
		Str("booking_id", bookingID).
		Int("subscriber_count", count).
		Msg("Event subscriber registered")
	return sub
}

// Unsubscribe detaches sub and closes its channel. Safe to call once per
// subscriber; disconnection never touches session state.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	set, ok := h.subs[sub.bookingID]
	if ok {
		if _, member := set[sub]; member {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(h.subs, sub.bookingID)
		}
	}
	h.mu.Unlock()

	h.logger.Info().
		Str("booking_id", sub.bookingID).
		Msg("Event subscriber unregistered")
}

// Publish broadcasts event to every current subscriber for the booking.
// Delivery is non-blocking: a subscriber whose buffer is full misses the
// event (logged) rather than stalling the state machine.
func (h *Hub) Publish(bookingID string, event domain.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[bookingID]
	if len(set) == 0 {
		h.logger.Debug().
			Str("booking_id", bookingID).
			Str("action", string(event.Action)).
			Msg("No subscribers for broadcast")
		return
	}

	for sub := range set {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn().
				Str("booking_id", bookingID).
				Str("action", string(event.Action)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

func (h *Hub) SubscriberCount(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[bookingID])
}
