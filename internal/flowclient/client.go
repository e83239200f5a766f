// Package flowclient drives the payment flow from the client side: it
// creates the session, follows the status stream, collects the SMS code
// from the user and submits it. Embedding programs (kiosks, CLI tools,
// integration tests) supply only the code prompt.
package flowclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/domain"
)

// Outcome is the terminal result of one payment attempt.
type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeDeclined Outcome = "declined"
	OutcomeExpired  Outcome = "expired"
)

// CodePrompter asks the user for the SMS code. Called once when the code
// is first requested and again after each rejection.
type CodePrompter func(ctx context.Context, prompt string) (string, error)

// StatusFunc receives human-readable progress messages.
type StatusFunc func(message string)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	codeEntryWindow  time.Duration
	reconnectBackoff time.Duration
	maxBackoff       time.Duration
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithCodeEntryWindow overrides how long the client waits for the user to
// type the code before treating the attempt as expired locally.
func WithCodeEntryWindow(window time.Duration) Option {
	return func(c *Client) { c.codeEntryWindow = window }
}

func New(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: the SSE stream is long-lived.
		httpClient:       &http.Client{},
		logger:           logger,
		codeEntryWindow:  5 * time.Minute,
		reconnectBackoff: time.Second,
		maxBackoff:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession registers the payment attempt with the relay.
func (c *Client) CreateSession(ctx context.Context, bookingID string, orderData json.RawMessage) error {
	body, err := json.Marshal(map[string]any{
		"bookingId": bookingID,
		"orderData": orderData,
	})
	if err != nil {
		return err
	}

	resp, err := c.postJSON(ctx, "/api/payment/create-session", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create session: %s", readError(resp))
	}
	return nil
}

// SubmitCode sends the user's SMS code for administrator review.
func (c *Client) SubmitCode(ctx context.Context, bookingID, code string) error {
	body, err := json.Marshal(map[string]string{
		"bookingId": bookingID,
		"smsCode":   code,
	})
	if err != nil {
		return err
	}

	resp, err := c.postJSON(ctx, "/api/payment/verify-sms", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit code: %s", readError(resp))
	}
	return nil
}

// Run executes the whole flow for one booking and blocks until a terminal
// outcome or ctx cancellation. Cancelling abandons the flow locally; the
// relay-side session stays live until the administrator acts or it
// expires.
func (c *Client) Run(ctx context.Context, bookingID string, orderData json.RawMessage, prompt CodePrompter, status StatusFunc) (Outcome, error) {
	if status == nil {
		status = func(string) {}
	}

	if err := c.CreateSession(ctx, bookingID, orderData); err != nil {
		return "", err
	}
	status("Waiting for payment approval...")

	events := make(chan domain.StatusEvent)
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	streamErr := make(chan error, 1)
	go func() {
		streamErr <- c.followEvents(streamCtx, bookingID, events)
	}()

	var codeDeadline <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-streamErr:
			return "", fmt.Errorf("status stream lost: %w", err)
		case <-codeDeadline:
			status("SMS code expired")
			return OutcomeExpired, nil
		case event := <-events:
			switch event.Action {
			case domain.EventConnected:
				if event.Message != "" {
					status(event.Message)
				}
			case domain.EventSMSSent:
				status("SMS code sent to your phone")
				codeDeadline = time.After(c.codeEntryWindow)
				if err := c.promptAndSubmit(ctx, bookingID, prompt, "Enter the 6-digit code from the SMS"); err != nil {
					return "", err
				}
			case domain.EventAwaitingConfirmation:
				status("Code sent to the administrator for review...")
			case domain.EventCodeRejected:
				status("Code rejected. Try entering another code.")
				if err := c.promptAndSubmit(ctx, bookingID, prompt, "Code rejected, enter a new 6-digit code"); err != nil {
					return "", err
				}
			case domain.EventPaymentVerified:
				status("Payment verified")
				return OutcomeVerified, nil
			case domain.EventPaymentDeclined:
				status("Payment declined")
				return OutcomeDeclined, nil
			}
		}
	}
}

func (c *Client) promptAndSubmit(ctx context.Context, bookingID string, prompt CodePrompter, text string) error {
	code, err := prompt(ctx, text)
	if err != nil {
		return err
	}
	return c.SubmitCode(ctx, bookingID, code)
}

// followEvents keeps the SSE stream alive, reconnecting with backoff,
// and forwards decoded events. Returns only when ctx is cancelled or the
// stream cannot be re-established.
func (c *Client) followEvents(ctx context.Context, bookingID string, out chan<- domain.StatusEvent) error {
	backoff := c.reconnectBackoff

	for {
		err := c.consumeStream(ctx, bookingID, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn().
			Err(err).
			Str("booking_id", bookingID).
			Dur("retry_in", backoff).
			Msg("Event stream interrupted, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *Client) consumeStream(ctx context.Context, bookingID string, out chan<- domain.StatusEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/payment/events/"+bookingID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: %s", readError(resp))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var event domain.StatusEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			c.logger.Warn().Err(err).Str("payload", payload).Msg("Skipping undecodable event")
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func readError(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}
