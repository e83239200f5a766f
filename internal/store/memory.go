package store

import (
	"context"
	"sync"
	"time"

	"github.com/bustravel/payrelay/internal/domain"
)

// MemoryStore is the default process-local session store. Sessions live
// for the lifetime of the process only. All read-modify-write goes through
// Update under the mutex, so concurrent requests never interleave on one
// session.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PaymentSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.PaymentSession),
	}
}

func (s *MemoryStore) Create(_ context.Context, session *domain.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.BookingID]; ok {
		return domain.ErrDuplicateSession
	}

	cp := *session
	s.sessions[session.BookingID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, bookingID string) (*domain.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[bookingID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	cp := *session
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, bookingID string, mutate func(*domain.PaymentSession) error) (*domain.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[bookingID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	cp := *session
	if err := mutate(&cp); err != nil {
		return nil, err
	}

	s.sessions[bookingID] = &cp
	result := cp
	return &result, nil
}

func (s *MemoryStore) Delete(_ context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[bookingID]; !ok {
		return domain.ErrSessionNotFound
	}

	delete(s.sessions, bookingID)
	return nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for bookingID, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, bookingID)
			removed = append(removed, bookingID)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

var _ SessionStore = (*MemoryStore)(nil)
