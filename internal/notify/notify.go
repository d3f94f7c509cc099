// Package notify delivers the one-shot completion webhook. Delivery is
// best-effort, at-most-once: a failed attempt is logged and swallowed,
// never retried, and never affects job state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/albertnahas/booker-agent/internal/booking"
)

type Notifier struct {
	hc     *http.Client
	logger *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		hc:     &http.Client{Timeout: 10 * time.Second},
		logger: logger.With("component", "notify"),
	}
}

// Notify POSTs the terminal status payload to callbackURL once. The job
// must already be terminal; the payload matches what a status query at
// the same instant would return.
func (n *Notifier) Notify(ctx context.Context, callbackURL string, job booking.Job) {
	if callbackURL == "" {
		return
	}

	payload, err := json.Marshal(booking.StatusResponse(job))
	if err != nil {
		n.logger.Error("callback payload marshal failed", "booking_id", job.ID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("callback request build failed", "booking_id", job.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.hc.Do(req)
	if err != nil {
		n.logger.Warn("callback delivery failed", "booking_id", job.ID, "error", err)
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 300 {
		n.logger.Warn("callback not acknowledged",
			"booking_id", job.ID, "status", res.StatusCode)
		return
	}
	n.logger.Info("callback delivered", "booking_id", job.ID, "status", res.StatusCode)
}
