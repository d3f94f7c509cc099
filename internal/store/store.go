// Package store defines the persistence contract for booking jobs. A
// job is mutated only by the single worker executing it; readers get
// snapshots and must never observe a partial transition.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/albertnahas/booker-agent/internal/booking"
)

var (
	// ErrNotFound is returned for ids that were never issued (or have
	// been evicted by retention).
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned when a state change would move a
	// job backwards (e.g. completing a job that never started).
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Store maps booking ids to job records.
type Store interface {
	// Create persists a new job in the accepted state. The id must be
	// fresh; Create never overwrites.
	Create(ctx context.Context, j booking.Job) error

	// Get returns a snapshot of the job's current state.
	Get(ctx context.Context, id string) (booking.Job, error)

	// MarkRunning transitions accepted -> running.
	MarkRunning(ctx context.Context, id string, at time.Time) error

	// MarkCompleted transitions running -> completed and records the result.
	MarkCompleted(ctx context.Context, id string, res *booking.Result, at time.Time) error

	// MarkFailed transitions running -> failed and records the reason.
	// Also valid from accepted, for jobs aborted before dispatch.
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error

	// List returns snapshots of all jobs, newest first.
	List(ctx context.Context) ([]booking.Job, error)

	// PurgeTerminal evicts terminal jobs that finished before cutoff and
	// returns how many were removed. Stores with native expiry may no-op.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int, error)
}
