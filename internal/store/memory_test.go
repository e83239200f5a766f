package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustravel/payrelay/internal/domain"
)

func newSession(bookingID string, createdAt time.Time) *domain.PaymentSession {
	return &domain.PaymentSession{
		BookingID: bookingID,
		Status:    domain.StatusPendingApproval,
		CreatedAt: createdAt,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	createdAt := time.Now()
	require.NoError(t, s.Create(ctx, newSession("BT1", createdAt)))

	got, err := s.Get(ctx, "BT1")
	require.NoError(t, err)
	assert.Equal(t, "BT1", got.BookingID)
	assert.Equal(t, domain.StatusPendingApproval, got.Status)

	// Get hands out a copy; mutating it must not leak into the store.
	got.Status = domain.StatusVerified
	again, err := s.Get(ctx, "BT1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, again.Status)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("BT1", time.Now())))
	err := s.Create(ctx, newSession("BT1", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateSession)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("BT1", time.Now())))

	updated, err := s.Update(ctx, "BT1", func(session *domain.PaymentSession) error {
		session.Status = domain.StatusSMSSent
		session.SMSCode = "123456"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSMSSent, updated.Status)

	got, err := s.Get(ctx, "BT1")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.SMSCode)
}

func TestMemoryStore_UpdateMutatorErrorLeavesSessionUnchanged(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("BT1", time.Now())))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "BT1", func(session *domain.PaymentSession) error {
		session.Status = domain.StatusVerified
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "BT1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, got.Status)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Update(context.Background(), "missing", func(*domain.PaymentSession) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("BT1", time.Now())))
	require.NoError(t, s.Delete(ctx, "BT1"))

	_, err := s.Get(ctx, "BT1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "BT1"), domain.ErrSessionNotFound)
}

func TestMemoryStore_DeleteOlderThan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, newSession("old-1", base.Add(-40*time.Minute))))
	require.NoError(t, s.Create(ctx, newSession("old-2", base.Add(-31*time.Minute))))
	require.NoError(t, s.Create(ctx, newSession("fresh", base.Add(-5*time.Minute))))

	removed, err := s.DeleteOlderThan(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, removed)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSweeper_SweepEnforcesSessionLifetime(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, newSession("stale", now.Add(-31*time.Minute))))
	require.NoError(t, s.Create(ctx, newSession("live", now.Add(-29*time.Minute))))

	sweeper := NewSweeper(s, 5*time.Minute, 30*time.Minute, zerolog.Nop()).
		WithClock(func() time.Time { return now })
	sweeper.Sweep(ctx)

	_, err := s.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "live")
	assert.NoError(t, err)
}
