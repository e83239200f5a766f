package store

import (
	"context"
	"time"

	"github.com/bustravel/payrelay/internal/domain"
)

// SessionStore holds live payment sessions keyed by booking id. All
// read-modify-write sequences go through Update so callers never see a
// torn session under concurrent request handling.
type SessionStore interface {
	// Create inserts a new session. It fails with
	// domain.ErrDuplicateSession if the booking id is already live.
	Create(ctx context.Context, session *domain.PaymentSession) error

	// Get returns a copy of the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, bookingID string) (*domain.PaymentSession, error)

	// Update applies mutate to the stored session under the store lock.
	// If mutate returns an error the session is left unchanged and the
	// error is returned verbatim. On success the updated copy is returned.
	Update(ctx context.Context, bookingID string, mutate func(*domain.PaymentSession) error) (*domain.PaymentSession, error)

	// Delete removes the session. Deleting an unknown booking id returns
	// domain.ErrSessionNotFound.
	Delete(ctx context.Context, bookingID string) error

	// DeleteOlderThan removes every session created before cutoff,
	// regardless of state, and returns the removed booking ids.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)

	// Len returns the number of live sessions.
	Len(ctx context.Context) (int, error)
}
