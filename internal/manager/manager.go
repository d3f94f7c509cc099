// Package manager owns the booking job lifecycle: it accepts
// submissions, runs them off the request path through the automation
// agent, records terminal outcomes, and hands completed jobs to the
// notifier.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/store"
)

// Agent executes one search-and-book task. A run either produces a
// result or fails; the manager never retries it.
type Agent interface {
	Execute(ctx context.Context, req booking.Request) (*booking.Result, error)
}

// Notifier delivers the one-shot completion callback.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, job booking.Job)
}

// ErrClosed is returned by Submit once the manager is shutting down.
var ErrClosed = errors.New("manager closed")

type Options struct {
	Store    store.Store
	Agent    Agent
	Notifier Notifier

	// MaxConcurrent bounds in-flight agent runs; each holds a browser
	// session. Submissions past the bound queue in the accepted state.
	MaxConcurrent int64

	// AgentTimeout bounds a single run. Zero disables the deadline.
	AgentTimeout time.Duration

	DefaultModel string

	Logger *slog.Logger
}

type Manager struct {
	store    store.Store
	agent    Agent
	notifier Notifier
	sem      *semaphore.Weighted
	timeout  time.Duration
	model    string
	logger   *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(opts Options) *Manager {
	maxConc := opts.MaxConcurrent
	if maxConc < 1 {
		maxConc = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    opts.Store,
		agent:    opts.Agent,
		notifier: opts.Notifier,
		sem:      semaphore.NewWeighted(maxConc),
		timeout:  opts.AgentTimeout,
		model:    opts.DefaultModel,
		logger:   logger.With("component", "manager"),
		base:     base,
		cancel:   cancel,
	}
}

// Submit validates the request, stores a job in the accepted state and
// schedules exactly one execution. It returns the created job without
// waiting on the agent.
func (m *Manager) Submit(ctx context.Context, req booking.Request) (booking.Job, error) {
	req.ApplyDefaults(time.Now(), m.model)
	if err := req.Validate(); err != nil {
		return booking.Job{}, err
	}

	j := booking.Job{
		ID:        booking.NewJobID(),
		State:     booking.StatusAccepted,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return booking.Job{}, ErrClosed
	}
	if err := m.store.Create(ctx, j); err != nil {
		m.mu.Unlock()
		return booking.Job{}, fmt.Errorf("create job: %w", err)
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(j.ID, req)

	m.logger.Info("booking accepted",
		"booking_id", j.ID, "city", req.City, "date", req.Date, "test_mode", req.TestMode)
	return j, nil
}

// Get returns a snapshot of the job's current state.
func (m *Manager) Get(ctx context.Context, id string) (booking.Job, error) {
	return m.store.Get(ctx, id)
}

// PurgeTerminal evicts terminal jobs finished before cutoff.
func (m *Manager) PurgeTerminal(ctx context.Context, cutoff time.Time) (int, error) {
	return m.store.PurgeTerminal(ctx, cutoff)
}

// Close stops intake, cancels in-flight runs and waits for their
// terminal transitions (and notification attempts) to land.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

// run executes one job. Every failure path ends in a terminal failed
// state; the orchestration layer never lets an automation fault escape.
func (m *Manager) run(id string, req booking.Request) {
	defer m.wg.Done()

	if err := m.sem.Acquire(m.base, 1); err != nil {
		m.fail(id, req, "booking was not started: server shutting down")
		return
	}
	defer m.sem.Release(1)

	if err := m.store.MarkRunning(m.base, id, time.Now().UTC()); err != nil {
		if errors.Is(err, context.Canceled) {
			m.fail(id, req, "booking was not started: server shutting down")
			return
		}
		m.logger.Error("mark running failed", "booking_id", id, "error", err)
		m.fail(id, req, fmt.Sprintf("internal error: %v", err))
		return
	}

	runCtx := m.base
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(m.base, m.timeout)
		defer cancel()
	}

	res, err := m.agent.Execute(runCtx, req)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("automation timed out after %s", m.timeout)
		}
		m.fail(id, req, reason)
		return
	}

	if err := m.complete(id, res); err != nil {
		m.logger.Error("mark completed failed", "booking_id", id, "error", err)
		return
	}
	m.logger.Info("booking completed", "booking_id", id)
	m.notify(id, req)
}

// complete and fail use a fresh context: terminal writes must land even
// while the server is shutting down.

func (m *Manager) complete(id string, res *booking.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.store.MarkCompleted(ctx, id, res, time.Now().UTC())
}

func (m *Manager) fail(id string, req booking.Request, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.MarkFailed(ctx, id, reason, time.Now().UTC()); err != nil {
		m.logger.Error("mark failed failed", "booking_id", id, "error", err)
		return
	}
	m.logger.Warn("booking failed", "booking_id", id, "reason", reason)
	// A failed automation run is still a completed job lifecycle; the
	// callback fires for it too.
	m.notify(id, req)
}

// notify fires the callback without delaying the worker slot. The job
// is terminal before this point, so a racing status query always sees
// the terminal state.
func (m *Manager) notify(id string, req booking.Request) {
	if req.CallbackURL == "" {
		return
	}
	snapCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	snap, err := m.store.Get(snapCtx, id)
	cancel()
	if err != nil {
		m.logger.Error("callback snapshot load failed", "booking_id", id, "error", err)
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		m.notifier.Notify(ctx, req.CallbackURL, snap)
	}()
}
