// Package redisstore provides a Redis-backed SessionStore for deployments
// where the relay must survive restarts or run more than one replica. The
// in-memory store remains the default; this implementation exists behind
// the same interface so swapping is a wiring change only.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/domain"
	"github.com/bustravel/payrelay/internal/store"
)

const keyPrefix = "payrelay:session:"

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New connects to Redis and verifies the connection. ttl is the absolute
// session lifetime; Redis expires entries on its own in addition to the
// sweeper pass.
func New(cfg Config, ttl time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(bookingID string) string {
	return keyPrefix + bookingID
}

func (s *RedisStore) Create(ctx context.Context, session *domain.PaymentSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.BookingID), payload, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDuplicateSession
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, bookingID string) (*domain.PaymentSession, error) {
	data, err := s.client.Get(ctx, sessionKey(bookingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.PaymentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) Update(ctx context.Context, bookingID string, mutate func(*domain.PaymentSession) error) (*domain.PaymentSession, error) {
	key := sessionKey(bookingID)
	var updated *domain.PaymentSession

	// Optimistic transaction: retry on concurrent modification.
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrSessionNotFound
			}
			return err
		}

		var session domain.PaymentSession
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		if err := mutate(&session); err != nil {
			return err
		}

		payload, err := json.Marshal(&session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = &session
		}
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, redis.TxFailedErr
}

func (s *RedisStore) Delete(ctx context.Context, bookingID string) error {
	n, err := s.client.Del(ctx, sessionKey(bookingID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var removed []string

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}

		var session domain.PaymentSession
		if err := json.Unmarshal(data, &session); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Dropping undecodable session")
			s.client.Del(ctx, key)
			continue
		}
		if session.CreatedAt.Before(cutoff) {
			if err := s.client.Del(ctx, key).Err(); err == nil {
				removed = append(removed, session.BookingID)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var n int
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

var _ store.SessionStore = (*RedisStore)(nil)
