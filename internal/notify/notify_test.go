package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertnahas/booker-agent/internal/booking"
)

func terminalJob() booking.Job {
	fin := time.Now().UTC()
	return booking.Job{
		ID:    "booking_cb",
		State: booking.StatusCompleted,
		Request: booking.Request{
			City: "Lisbon", Date: "2025-07-04", Time: "20:00", PartySize: 2,
		},
		Result:     &booking.Result{Restaurant: booking.Restaurant{Name: "Belcanto"}},
		FinishedAt: &fin,
	}
}

func TestNotifyPostsStatusPayload(t *testing.T) {
	var calls atomic.Int32
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	New(nil).Notify(context.Background(), srv.URL, terminalJob())

	require.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "application/json", contentType)

	var payload booking.Response
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "completed", payload.Status)
	assert.Equal(t, "booking_cb", payload.BookingID)
	require.NotNil(t, payload.Details)
	assert.Equal(t, "Lisbon", payload.Details.City)
	require.NotNil(t, payload.Details.Result)
	assert.Equal(t, "Belcanto", payload.Details.Result.Restaurant.Name)
}

func TestNotifyOneAttemptOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	New(nil).Notify(context.Background(), srv.URL, terminalJob())
	assert.EqualValues(t, 1, calls.Load())
}

func TestNotifyUnreachableEndpoint(t *testing.T) {
	// Must return, not panic or retry.
	New(nil).Notify(context.Background(), "http://127.0.0.1:1/callback", terminalJob())
}

func TestNotifyEmptyURL(t *testing.T) {
	New(nil).Notify(context.Background(), "", terminalJob())
}
