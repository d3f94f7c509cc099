package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/manager"
	"github.com/albertnahas/booker-agent/internal/store/memory"
)

type stubAgent struct {
	release chan struct{} // nil means complete immediately
	res     *booking.Result
}

func (s *stubAgent) Execute(ctx context.Context, _ booking.Request) (*booking.Result, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.res, nil
}

type dropNotifier struct{}

func (dropNotifier) Notify(context.Context, string, booking.Job) {}

func newTestServer(t *testing.T, ag manager.Agent) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	mgr := manager.New(manager.Options{
		Store:         memory.New(),
		Agent:         ag,
		Notifier:      dropNotifier{},
		MaxConcurrent: 2,
		DefaultModel:  "gpt-4.1",
		Logger:        logger,
	})
	t.Cleanup(mgr.Close)

	mux := http.NewServeMux()
	(&Server{Manager: mgr, Logger: logger}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func postBook(t *testing.T, srv *httptest.Server, body string) (*http.Response, booking.Response) {
	t.Helper()
	res, err := http.Post(srv.URL+"/book", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	var out booking.Response
	if res.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(res.Body).Decode(&out)
	}
	return res, out
}

func getStatus(t *testing.T, srv *httptest.Server, id string) (int, booking.Response) {
	t.Helper()
	res, err := http.Get(srv.URL + "/status/" + id)
	require.NoError(t, err)
	defer res.Body.Close()
	var out booking.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Restaurant Booking API is running", body["message"])
}

func TestBookAccepted(t *testing.T) {
	srv := newTestServer(t, &stubAgent{release: make(chan struct{}), res: &booking.Result{}})

	res, out := postBook(t, srv, `{"city":"Paris","date":"2025-06-01","time":"19:00","party_size":2}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "accepted", out.Status)
	assert.True(t, strings.HasPrefix(out.BookingID, "booking_"))
	assert.Contains(t, out.Message, "You can check the status using the booking ID")
	assert.Nil(t, out.Details)
}

func TestBookValidationError(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	res, out := postBook(t, srv, `{"date":"2025-06-01","party_size":2}`)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Message, "city")
}

func TestBookRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	res, _ := postBook(t, srv, `{"city":"Paris","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestBookMalformedJSON(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	res, _ := postBook(t, srv, `{"city":`)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestStatusUnknownID(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	res, err := http.Get(srv.URL + "/status/booking_missing")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "Booking ID not found", body["message"])
}

func TestStatusProcessing(t *testing.T) {
	ag := &stubAgent{release: make(chan struct{}), res: &booking.Result{}}
	srv := newTestServer(t, ag)

	_, out := postBook(t, srv, `{"city":"Paris"}`)
	id := out.BookingID

	require.Eventually(t, func() bool {
		_, st := getStatus(t, srv, id)
		return st.Status == "processing"
	}, 5*time.Second, 5*time.Millisecond)

	_, st := getStatus(t, srv, id)
	assert.Equal(t, "Booking in progress...", st.Message)
	require.NotNil(t, st.Details)
	assert.Equal(t, "Paris", st.Details.City)
	assert.Nil(t, st.Details.Result)
	close(ag.release)
}

func TestBookThenCompleted(t *testing.T) {
	res := &booking.Result{
		Restaurant: booking.Restaurant{Name: "Le Jules Verne", Address: "Tour Eiffel"},
		Booking:    &booking.Details{Date: "2025-06-01", Time: "19:00", PartySize: 2, Status: "confirmed"},
	}
	srv := newTestServer(t, &stubAgent{res: res})

	_, out := postBook(t, srv, `{"city":"Paris","date":"2025-06-01","time":"19:00","party_size":2,"first_name":"Ada","last_name":"Lovelace"}`)
	id := out.BookingID

	var st booking.Response
	require.Eventually(t, func() bool {
		code, got := getStatus(t, srv, id)
		st = got
		return code == http.StatusOK && got.Status == "completed"
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, "Booking completed", st.Message)
	require.NotNil(t, st.Details)
	assert.Equal(t, "Paris", st.Details.City)
	assert.Equal(t, "Ada", st.Details.FirstName)
	require.NotNil(t, st.Details.Result)
	assert.Equal(t, "Le Jules Verne", st.Details.Result.Restaurant.Name)
	assert.Empty(t, st.Details.Error)
}

func TestBookTestModeMessages(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	_, out := postBook(t, srv, `{"city":"Paris","test_mode":true}`)
	assert.Contains(t, out.Message, "Test mode - Restaurant information retrieval")

	require.Eventually(t, func() bool {
		_, st := getStatus(t, srv, out.BookingID)
		return st.Status == "completed"
	}, 5*time.Second, 5*time.Millisecond)

	_, st := getStatus(t, srv, out.BookingID)
	assert.Equal(t, "Restaurant information retrieval completed", st.Message)
}

func TestDetailsFlattenEchoedRequest(t *testing.T) {
	srv := newTestServer(t, &stubAgent{res: &booking.Result{}})

	_, out := postBook(t, srv, `{"city":"Oslo","purpose":"birthday"}`)

	require.Eventually(t, func() bool {
		_, st := getStatus(t, srv, out.BookingID)
		return st.Status == "completed"
	}, 5*time.Second, 5*time.Millisecond)

	res, err := http.Get(srv.URL + "/status/" + out.BookingID)
	require.NoError(t, err)
	defer res.Body.Close()

	var raw map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&raw))
	details, ok := raw["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Oslo", details["city"])
	assert.Equal(t, "birthday", details["purpose"])
	_, hasResult := details["result"]
	assert.True(t, hasResult)
	_, hasError := details["error"]
	assert.False(t, hasError)
}
