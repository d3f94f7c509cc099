// Package agent is the call boundary into the external browser-driven
// booking agent. The orchestration layer treats a run as a single
// opaque call that returns a result or an error.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/albertnahas/booker-agent/internal/booking"
)

// Error is a failure reported by the agent worker itself, as opposed to
// a transport failure reaching it.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Client drives the agent worker over HTTP. A run holds a browser
// session plus model calls and takes seconds to minutes; the client
// sets no timeout of its own and relies on the caller's context.
type Client struct {
	hc       *http.Client
	baseURL  string
	token    string
	geocoder *Geocoder
	logger   *slog.Logger
}

type Options struct {
	BaseURL    string
	Token      string
	GeocodeURL string
	Logger     *slog.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		hc:       &http.Client{},
		baseURL:  opts.BaseURL,
		token:    opts.Token,
		geocoder: NewGeocoder(opts.GeocodeURL),
		logger:   logger.With("component", "agent"),
	}
}

type executeResponse struct {
	Result  *booking.Result `json:"result"`
	Message string          `json:"message"`
}

// Execute runs one search-and-book task on the agent worker. When the
// request carries no coordinates the city is geocoded first so the
// worker can open the map search directly.
func (c *Client) Execute(ctx context.Context, req booking.Request) (*booking.Result, error) {
	c.ensureCoordinates(ctx, &req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/execute", body)
	if err != nil {
		return nil, fmt.Errorf("agent unreachable: %w", err)
	}

	var resp executeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("agent returned malformed response (status=%d)", status)
	}
	if status >= 400 {
		if resp.Message != "" {
			return nil, &Error{Reason: resp.Message}
		}
		return nil, &Error{Reason: fmt.Sprintf("agent run failed (status=%d)", status)}
	}
	if resp.Result == nil {
		return nil, &Error{Reason: "no result returned from agent"}
	}
	return resp.Result, nil
}

func (c *Client) ensureCoordinates(ctx context.Context, req *booking.Request) {
	if req.HasCoordinates() {
		return
	}
	lat, lon, err := c.geocoder.Locate(ctx, req.City)
	if err != nil {
		c.logger.Warn("geocoding failed, using default coordinates",
			"city", req.City, "error", err)
		lat, lon = DefaultLatitude, DefaultLongitude
	}
	req.Latitude = &lat
	req.Longitude = &lon
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
