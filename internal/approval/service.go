// Package approval implements the payment-approval state machine: the
// coordination between a browser session, this relay, and the human
// administrator who gates payment completion on out-of-band SMS-code
// approval.
package approval

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/domain"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/internal/notify"
	"github.com/bustravel/payrelay/internal/store"
)

// Administrator actions carried in notification-channel tokens.
const (
	ActionSendCode    = "send_code"
	ActionDecline     = "decline"
	ActionConfirmCode = "confirm_code"
	ActionRejectCode  = "reject_code"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Config carries the timing constants of the protocol. Zero values fall
// back to the protocol defaults.
type Config struct {
	CodeTTL       time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration
	VerifiedGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.CodeTTL == 0 {
		c.CodeTTL = 5 * time.Minute
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
	if c.VerifiedGrace == 0 {
		c.VerifiedGrace = 60 * time.Second
	}
	return c
}

// Service owns the session lifecycle: code generation, expiry enforcement
// and every state transition. Sessions are mutated only here, through the
// store's atomic Update.
type Service struct {
	store    store.SessionStore
	hub      *events.Hub
	notifier notify.Notifier
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
	genCode  func() string
}

type Option func(*Service)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides SMS code generation, for deterministic tests.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.genCode = gen }
}

func New(sessions store.SessionStore, hub *events.Hub, notifier notify.Notifier, cfg Config, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    sessions,
		hub:      hub,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		genCode:  randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// Run drives the periodic sweep that enforces the absolute session
// lifetime. Blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sweeper := store.NewSweeper(s.store, s.cfg.SweepInterval, s.cfg.SessionTTL, s.logger).WithClock(s.now)
	return sweeper.Run(ctx)
}

// CreateSession registers a new payment attempt and asks the administrator
// to approve or decline it. A live duplicate booking id is an error; the
// caller must pick a fresh id.
func (s *Service) CreateSession(ctx context.Context, bookingID string, orderData []byte) (*domain.PaymentSession, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("booking id is required")
	}

	session := &domain.PaymentSession{
		BookingID: bookingID,
		OrderData: orderData,
		Status:    domain.StatusPendingApproval,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Msg("Payment session created")

	text := fmt.Sprintf("\U0001F195 New payment request\n\n%s\U0001F194 Booking: <code>%s</code>", formatOrderSummary(orderData), bookingID)
	s.notifyAdmin(ctx, bookingID, text,
		notify.Action{Label: "\U0001F4F1 Send code", Token: notify.ActionToken(ActionSendCode, bookingID)},
		notify.Action{Label: "❌ Decline", Token: notify.ActionToken(ActionDecline, bookingID)},
	)

	return session, nil
}

// Status returns the current session snapshot.
func (s *Service) Status(ctx context.Context, bookingID string) (*domain.PaymentSession, error) {
	return s.store.Get(ctx, bookingID)
}

// ActiveSessions returns the number of live sessions, for health reporting.
func (s *Service) ActiveSessions(ctx context.Context) int {
	n, err := s.store.Len(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count sessions")
		return 0
	}
	return n
}

// SubmitCode records the code the client entered and forwards it to the
// administrator for confirmation. The code is only checked syntactically:
// the administrator is the actual verifier, so any six-digit string is
// relayed rather than compared against the generated one.
func (s *Service) SubmitCode(ctx context.Context, bookingID, code string) error {
	submittedAt := s.now()

	_, err := s.store.Update(ctx, bookingID, func(session *domain.PaymentSession) error {
		if session.Status != domain.StatusSMSSent {
			return domain.ErrInvalidState
		}
		if submittedAt.Sub(session.SMSTimestamp) > s.cfg.CodeTTL {
			return domain.ErrCodeExpired
		}
		if !codePattern.MatchString(code) {
			return domain.ErrMalformedCode
		}
		session.ReceivedCode = code
		session.CodeSubmittedAt = submittedAt
		session.Status = domain.StatusAwaitingConfirmation
		return nil
	})
	if err != nil {
		s.logger.Warn().
			Str("booking_id", bookingID).
			Err(err).
			Msg("Code submission rejected")
		return err
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Msg("Code received, requesting admin confirmation")

	text := fmt.Sprintf("\U0001F510 Client entered SMS code: <code>%s</code>\n\n\U0001F194 Booking: <code>%s</code>\n\n❓ Confirm the code?", code, bookingID)
	s.notifyAdmin(ctx, bookingID, text,
		notify.Action{Label: "✅ Confirm code", Token: notify.ActionToken(ActionConfirmCode, bookingID)},
		notify.Action{Label: "❌ Wrong code", Token: notify.ActionToken(ActionRejectCode, bookingID)},
	)

	s.hub.Publish(bookingID, domain.StatusEvent{
		Action:  domain.EventAwaitingConfirmation,
		Message: "Code sent to the administrator for review...",
	})
	return nil
}

// HandleAdminAction applies one administrator interaction to the session
// it names. Unknown actions are logged and ignored; state errors are
// acknowledged back to the administrator and reported to the caller.
func (s *Service) HandleAdminAction(ctx context.Context, ev notify.AdminEvent) error {
	var err error
	switch ev.Action {
	case ActionSendCode:
		err = s.sendCode(ctx, ev)
	case ActionDecline:
		err = s.decline(ctx, ev)
	case ActionConfirmCode:
		err = s.confirmCode(ctx, ev)
	case ActionRejectCode:
		err = s.rejectCode(ctx, ev)
	default:
		s.logger.Warn().
			Str("action", ev.Action).
			Str("booking_id", ev.BookingID).
			Msg("Ignoring unknown admin action")
		return nil
	}

	if err != nil {
		s.logger.Warn().
			Str("action", ev.Action).
			Str("booking_id", ev.BookingID).
			Err(err).
			Msg("Admin action rejected")
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			s.acknowledge(ctx, ev.InteractionID, "❌ Session not found")
		case errors.Is(err, domain.ErrInvalidState):
			s.acknowledge(ctx, ev.InteractionID, "❌ Not available in the current state")
		}
	}
	return err
}

func (s *Service) sendCode(ctx context.Context, ev notify.AdminEvent) error {
	code := s.genCode()
	sentAt := s.now()

	_, err := s.store.Update(ctx, ev.BookingID, func(session *domain.PaymentSession) error {
		if session.Status != domain.StatusPendingApproval {
			return domain.ErrInvalidState
		}
		session.SMSCode = code
		session.SMSTimestamp = sentAt
		session.Status = domain.StatusSMSSent
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", ev.BookingID).
		Msg("SMS code generated")

	s.acknowledge(ctx, ev.InteractionID, "\U0001F4F1 SMS sent")
	s.notifyAdmin(ctx, ev.BookingID, fmt.Sprintf(
		"✅ SMS sent to the client.\n\n\U0001F4F1 Reference code: <code>%s</code>\n\U0001F4A1 The client may enter any 6-digit code\n\U0001F550 Valid for %d minutes",
		code, int(s.cfg.CodeTTL.Minutes()),
	))

	s.hub.Publish(ev.BookingID, domain.StatusEvent{
		Action:  domain.EventSMSSent,
		Message: "SMS code sent to your phone",
	})
	return nil
}

func (s *Service) decline(ctx context.Context, ev notify.AdminEvent) error {
	_, err := s.store.Update(ctx, ev.BookingID, func(session *domain.PaymentSession) error {
		if session.Status != domain.StatusPendingApproval {
			return domain.ErrInvalidState
		}
		session.Status = domain.StatusDeclined
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", ev.BookingID).
		Msg("Payment declined by administrator")

	s.acknowledge(ctx, ev.InteractionID, "❌ Payment declined")
	s.notifyAdmin(ctx, ev.BookingID, fmt.Sprintf("❌ Payment declined\n\n\U0001F194 Booking: <code>%s</code>", ev.BookingID))

	s.hub.Publish(ev.BookingID, domain.StatusEvent{
		Action:  domain.EventPaymentDeclined,
		Message: "Payment declined by the administrator",
	})
	return nil
}

func (s *Service) confirmCode(ctx context.Context, ev notify.AdminEvent) error {
	var confirmedCode string
	_, err := s.store.Update(ctx, ev.BookingID, func(session *domain.PaymentSession) error {
		if session.Status != domain.StatusAwaitingConfirmation {
			return domain.ErrInvalidState
		}
		confirmedCode = session.ReceivedCode
		session.Status = domain.StatusVerified
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", ev.BookingID).
		Msg("Code confirmed, payment verified")

	s.acknowledge(ctx, ev.InteractionID, "✅ Code confirmed")
	s.notifyAdmin(ctx, ev.BookingID, fmt.Sprintf(
		"✅ Code confirmed!\n\n\U0001F4F1 Code: <code>%s</code>\n\U0001F194 Booking: <code>%s</code>\n\U0001F389 Payment complete!",
		confirmedCode, ev.BookingID,
	))

	s.hub.Publish(ev.BookingID, domain.StatusEvent{
		Action:  domain.EventPaymentVerified,
		Message: "Payment verified",
	})

	// Keep the verified session around briefly so a reconnecting client
	// can still read the outcome, then drop it.
	bookingID := ev.BookingID
	time.AfterFunc(s.cfg.VerifiedGrace, func() {
		if err := s.store.Delete(context.Background(), bookingID); err == nil {
			s.logger.Info().
				Str("booking_id", bookingID).
				Msg("Verified session cleaned up")
		}
	})
	return nil
}

func (s *Service) rejectCode(ctx context.Context, ev notify.AdminEvent) error {
	var rejectedCode string
	_, err := s.store.Update(ctx, ev.BookingID, func(session *domain.PaymentSession) error {
		if session.Status != domain.StatusAwaitingConfirmation {
			return domain.ErrInvalidState
		}
		rejectedCode = session.ReceivedCode
		session.ReceivedCode = ""
		session.CodeSubmittedAt = time.Time{}
		// Back to code entry. The original code and its validity window
		// keep running; rejection grants no extra time.
		session.Status = domain.StatusSMSSent
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", ev.BookingID).
		Msg("Code rejected, client may retry")

	s.acknowledge(ctx, ev.InteractionID, "❌ Code rejected")
	s.notifyAdmin(ctx, ev.BookingID, fmt.Sprintf(
		"❌ Code rejected\n\n\U0001F4F1 Code was: <code>%s</code>\n\U0001F194 Booking: <code>%s</code>\n\U0001F504 The client may enter a new code",
		rejectedCode, ev.BookingID,
	))

	s.hub.Publish(ev.BookingID, domain.StatusEvent{
		Action:  domain.EventCodeRejected,
		Message: "Code rejected. Try entering another code.",
	})
	return nil
}

// notifyAdmin delivers best-effort: a failed notification is logged and
// swallowed, the triggering transition stands.
func (s *Service) notifyAdmin(ctx context.Context, bookingID, text string, actions ...notify.Action) {
	if err := s.notifier.Notify(ctx, text, actions...); err != nil {
		s.logger.Error().
			Str("booking_id", bookingID).
			Err(err).
			Msg("Failed to notify administrator")
	}
}

func (s *Service) acknowledge(ctx context.Context, interactionID, text string) {
	if interactionID == "" {
		return
	}
	if err := s.notifier.Acknowledge(ctx, interactionID, text); err != nil {
		s.logger.Error().Err(err).Msg("Failed to acknowledge admin interaction")
	}
}
