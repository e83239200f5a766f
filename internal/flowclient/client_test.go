package flowclient

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/internal/notify"
	"github.com/bustravel/payrelay/internal/server/handlers"
	"github.com/bustravel/payrelay/internal/store"
	"github.com/bustravel/payrelay/pkg/config"
)

// scriptedAdmin reacts to relay notifications the way a human admin
// would, pressing the scripted button for each decision point after a
// short delay so the client has subscribed to the stream first.
type scriptedAdmin struct {
	mu      sync.Mutex
	svc     *approval.Service
	onNew   string
	onCode  string
	pressed []string
}

func (a *scriptedAdmin) Notify(_ context.Context, _ string, actions ...notify.Action) error {
	if len(actions) == 0 {
		return nil
	}

	var token string
	for _, action := range actions {
		act, _, err := notify.ParseActionToken(action.Token)
		if err != nil {
			continue
		}
		if act == a.onNew || act == a.onCode {
			token = action.Token
			break
		}
	}
	if token == "" {
		return nil
	}

	a.mu.Lock()
	a.pressed = append(a.pressed, token)
	a.mu.Unlock()

	time.AfterFunc(100*time.Millisecond, func() {
		action, bookingID, err := notify.ParseActionToken(token)
		if err != nil {
			return
		}
		_ = a.svc.HandleAdminAction(context.Background(), notify.AdminEvent{
			Action:    action,
			BookingID: bookingID,
		})
	})
	return nil
}

func (a *scriptedAdmin) Acknowledge(context.Context, string, string) error { return nil }

func newRelay(t *testing.T, admin *scriptedAdmin) (*httptest.Server, *approval.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := events.NewHub(zerolog.Nop())
	svc := approval.New(store.NewMemoryStore(), hub, admin, approval.Config{}, zerolog.Nop())
	admin.svc = svc

	router := gin.New()
	handlers.New(svc, hub, nil, zerolog.Nop(), &config.Config{}).SetupHandlers(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestRun_FullFlowVerified(t *testing.T) {
	admin := &scriptedAdmin{onNew: "send_code", onCode: "confirm_code"}
	srv, _ := newRelay(t, admin)

	client := New(srv.URL, zerolog.Nop())

	var statuses []string
	prompt := func(context.Context, string) (string, error) {
		return "424242", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := client.Run(ctx, "BT2001", json.RawMessage(`{"totalPrice":"45 PLN"}`), prompt, func(msg string) {
		statuses = append(statuses, msg)
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)

	joined := strings.Join(statuses, "\n")
	assert.Contains(t, joined, "SMS code sent to your phone")
	assert.Contains(t, joined, "Payment verified")

	admin.mu.Lock()
	defer admin.mu.Unlock()
	assert.Equal(t, []string{"send_code:BT2001", "confirm_code:BT2001"}, admin.pressed)
}

func TestRun_Declined(t *testing.T) {
	admin := &scriptedAdmin{onNew: "decline"}
	srv, _ := newRelay(t, admin)

	client := New(srv.URL, zerolog.Nop())

	prompt := func(context.Context, string) (string, error) {
		t.Fatal("no code should be requested for a declined payment")
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := client.Run(ctx, "BT2002", nil, prompt, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome)
}

func TestRun_RejectedCodeIsRetried(t *testing.T) {
	admin := &scriptedAdmin{onNew: "send_code"}
	srv, svc := newRelay(t, admin)

	client := New(srv.URL, zerolog.Nop())

	// Reject the first code, confirm the second.
	var submissions int
	prompt := func(context.Context, string) (string, error) {
		submissions++
		return "111111", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := true
	go func() {
		for ctx.Err() == nil {
			session, err := svc.Status(context.Background(), "BT2003")
			if err == nil && session.ReceivedCode != "" {
				action := "confirm_code"
				if first {
					first = false
					action = "reject_code"
				}
				_ = svc.HandleAdminAction(context.Background(), notify.AdminEvent{
					Action:    action,
					BookingID: "BT2003",
				})
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	outcome, err := client.Run(ctx, "BT2003", nil, prompt, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)
	assert.Equal(t, 2, submissions)
}

func TestRun_CancellationLeavesSessionAlive(t *testing.T) {
	admin := &scriptedAdmin{}
	srv, svc := newRelay(t, admin)

	client := New(srv.URL, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	prompt := func(context.Context, string) (string, error) { return "111111", nil }
	_, err := client.Run(ctx, "BT2004", nil, prompt, nil)
	require.ErrorIs(t, err, context.Canceled)

	// The relay keeps the session; only the administrator or the sweeper
	// finishes it.
	session, err := svc.Status(context.Background(), "BT2004")
	require.NoError(t, err)
	assert.NotNil(t, session)
}
