// Package postgres persists booking jobs in Postgres. State guards are
// expressed in the UPDATE predicates so a transition that would move a
// job backwards matches zero rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/db"
	"github.com/albertnahas/booker-agent/internal/store"
)

type Store struct {
	db *db.DB
}

func New(d *db.DB) *Store { return &Store{db: d} }

func (s *Store) Create(ctx context.Context, j booking.Job) error {
	req, err := json.Marshal(j.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO bookings(id, state, request, created_at)
VALUES ($1,$2,$3,$4)`,
		j.ID, string(j.State), req, j.CreatedAt)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (booking.Job, error) {
	var (
		j       booking.Job
		state   string
		reqRaw  []byte
		resRaw  []byte
		errText *string
	)
	err := s.db.QueryRow(ctx, `
SELECT id, state, request, result, error, created_at, started_at, finished_at
FROM bookings
WHERE id=$1`, id).
		Scan(&j.ID, &state, &reqRaw, &resRaw, &errText, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if err != nil {
		if db.IsNotFound(db.WrapNotFound(err)) {
			return booking.Job{}, store.ErrNotFound
		}
		return booking.Job{}, err
	}
	return hydrate(j, state, reqRaw, resRaw, errText)
}

func (s *Store) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.guarded(ctx, id, `
UPDATE bookings SET state='running', started_at=$2
WHERE id=$1 AND state='accepted'`, at)
}

func (s *Store) MarkCompleted(ctx context.Context, id string, res *booking.Result, at time.Time) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	n, err := s.db.Exec(ctx, `
UPDATE bookings SET state='completed', result=$2, finished_at=$3
WHERE id=$1 AND state='running'`, id, raw, at)
	if err != nil {
		return err
	}
	return s.checkGuard(ctx, id, n)
}

func (s *Store) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	n, err := s.db.Exec(ctx, `
UPDATE bookings SET state='failed', error=$2, finished_at=$3
WHERE id=$1 AND state IN ('accepted','running')`, id, reason, at)
	if err != nil {
		return err
	}
	return s.checkGuard(ctx, id, n)
}

func (s *Store) List(ctx context.Context) ([]booking.Job, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, state, request, result, error, created_at, started_at, finished_at
FROM bookings
ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Job
	for rows.Next() {
		var (
			j       booking.Job
			state   string
			reqRaw  []byte
			resRaw  []byte
			errText *string
		)
		if err := rows.Scan(&j.ID, &state, &reqRaw, &resRaw, &errText,
			&j.CreatedAt, &j.StartedAt, &j.FinishedAt); err != nil {
			return nil, err
		}
		h, err := hydrate(j, state, reqRaw, resRaw, errText)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) PurgeTerminal(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.db.Exec(ctx, `
DELETE FROM bookings
WHERE state IN ('completed','failed') AND finished_at < $1`, cutoff)
	return int(n), err
}

func (s *Store) guarded(ctx context.Context, id, sql string, at time.Time) error {
	n, err := s.db.Exec(ctx, sql, id, at)
	if err != nil {
		return err
	}
	return s.checkGuard(ctx, id, n)
}

// checkGuard disambiguates a zero-row guarded update: either the id is
// unknown or the job was already past the expected state.
func (s *Store) checkGuard(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrInvalidTransition
}

func hydrate(j booking.Job, state string, reqRaw, resRaw []byte, errText *string) (booking.Job, error) {
	j.State = booking.Status(state)
	if err := json.Unmarshal(reqRaw, &j.Request); err != nil {
		return booking.Job{}, fmt.Errorf("unmarshal request: %w", err)
	}
	if len(resRaw) > 0 {
		var res booking.Result
		if err := json.Unmarshal(resRaw, &res); err != nil {
			return booking.Job{}, fmt.Errorf("unmarshal result: %w", err)
		}
		j.Result = &res
	}
	if errText != nil {
		j.Error = *errText
	}
	return j, nil
}
