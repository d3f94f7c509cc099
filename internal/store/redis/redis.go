// Package redis persists booking jobs as JSON values in Redis.
// Retention is handled by the server natively: terminal writes carry a
// TTL, so PurgeTerminal is a no-op.
//
// Plain GET/SET is sufficient for transitions because each job is
// mutated by exactly one worker; concurrent access is read-only.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/store"
)

const defaultPrefix = "booking:job:"

type Store struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// New creates a Redis-backed job store. retention is the TTL applied to
// terminal jobs; zero keeps them until explicitly deleted.
func New(client redis.UniversalClient, retention time.Duration) *Store {
	return &Store{client: client, prefix: defaultPrefix, retention: retention}
}

func (s *Store) Create(ctx context.Context, j booking.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.prefix+j.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return store.ErrInvalidTransition
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (booking.Job, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return booking.Job{}, store.ErrNotFound
		}
		return booking.Job{}, fmt.Errorf("redis get: %w", err)
	}
	var j booking.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return booking.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return j, nil
}

func (s *Store) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, func(j *booking.Job) error {
		if j.State != booking.StatusAccepted {
			return store.ErrInvalidTransition
		}
		j.State = booking.StatusRunning
		j.StartedAt = &at
		return nil
	}, 0)
}

func (s *Store) MarkCompleted(ctx context.Context, id string, res *booking.Result, at time.Time) error {
	return s.transition(ctx, id, func(j *booking.Job) error {
		if j.State != booking.StatusRunning {
			return store.ErrInvalidTransition
		}
		j.State = booking.StatusCompleted
		j.Result = res
		j.FinishedAt = &at
		return nil
	}, s.retention)
}

func (s *Store) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	return s.transition(ctx, id, func(j *booking.Job) error {
		if j.State.Terminal() {
			return store.ErrInvalidTransition
		}
		j.State = booking.StatusFailed
		j.Error = reason
		j.FinishedAt = &at
		return nil
	}, s.retention)
}

func (s *Store) List(ctx context.Context) ([]booking.Job, error) {
	var (
		out    []booking.Job
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("redis get: %w", err)
			}
			var j booking.Job
			if err := json.Unmarshal(data, &j); err != nil {
				return nil, fmt.Errorf("unmarshal job: %w", err)
			}
			out = append(out, j)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (s *Store) PurgeTerminal(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *Store) transition(ctx context.Context, id string, apply func(*booking.Job) error, ttl time.Duration) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := apply(&j); err != nil {
		return err
	}
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
