// Package memory is the default in-process job store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/store"
)

// Store keeps jobs in a guarded map. A Result is never mutated after it
// is recorded, so snapshots may share the pointer.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]booking.Job
}

func New() *Store {
	return &Store{jobs: make(map[string]booking.Job)}
}

func (s *Store) Create(_ context.Context, j booking.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return store.ErrInvalidTransition
	}
	s.jobs[j.ID] = j
	return nil
}

func (s *Store) Get(_ context.Context, id string) (booking.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return booking.Job{}, store.ErrNotFound
	}
	return j, nil
}

func (s *Store) MarkRunning(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.State != booking.StatusAccepted {
		return store.ErrInvalidTransition
	}
	j.State = booking.StatusRunning
	j.StartedAt = &at
	s.jobs[id] = j
	return nil
}

func (s *Store) MarkCompleted(_ context.Context, id string, res *booking.Result, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.State != booking.StatusRunning {
		return store.ErrInvalidTransition
	}
	j.State = booking.StatusCompleted
	j.Result = res
	j.FinishedAt = &at
	s.jobs[id] = j
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.State.Terminal() {
		return store.ErrInvalidTransition
	}
	j.State = booking.StatusFailed
	j.Error = reason
	j.FinishedAt = &at
	s.jobs[id] = j
	return nil
}

func (s *Store) List(_ context.Context) ([]booking.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (s *Store) PurgeTerminal(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if j.State.Terminal() && j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}
