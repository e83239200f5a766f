package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustravel/payrelay/internal/domain"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first := hub.Subscribe("BT1")
	second := hub.Subscribe("BT1")
	other := hub.Subscribe("BT2")
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)
	defer hub.Unsubscribe(other)

	hub.Publish("BT1", domain.StatusEvent{Action: domain.EventSMSSent})

	for _, sub := range []*Subscriber{first, second} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, domain.EventSMSSent, event.Action)
		default:
			t.Fatal("expected buffered event")
		}
	}

	select {
	case <-other.Events():
		t.Fatal("event leaked to another booking")
	default:
	}
}

func TestHub_PublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	// Client not connected yet; nothing to deliver, nothing to block on.
	hub.Publish("BT1", domain.StatusEvent{Action: domain.EventPaymentVerified})
	assert.Equal(t, 0, hub.SubscriberCount("BT1"))
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	sub := hub.Subscribe("BT1")
	require.Equal(t, 1, hub.SubscriberCount("BT1"))

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount("BT1"))

	_, open := <-sub.Events()
	assert.False(t, open)

	// Idempotent; a racing disconnect path may call it twice.
	hub.Unsubscribe(sub)
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	sub := hub.Subscribe("BT1")
	defer hub.Unsubscribe(sub)

	// Overfill the buffer; Publish must never block the state machine.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish("BT1", domain.StatusEvent{Action: domain.EventSMSSent})
	}

	delivered := 0
	for {
		select {
		case <-sub.Events():
			delivered++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, delivered)
}
