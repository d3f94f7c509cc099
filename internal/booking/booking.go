// Package booking defines the booking request/result model and the
// lifecycle states a booking job moves through.
package booking

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a booking job. Transitions only move
// forward: accepted -> running -> completed|failed.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request holds the submitted booking parameters. Once a job is created
// the request is immutable.
type Request struct {
	City      string `json:"city"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time"`
	PartySize int    `json:"party_size"`
	Purpose   string `json:"purpose"`
	Model     string `json:"model"`
	TestMode  bool   `json:"test_mode"`

	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	Email              string `json:"email,omitempty"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	BookingDescription string `json:"booking_description,omitempty"`

	RestaurantName string   `json:"restaurant_name,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`

	CallbackURL string `json:"callback_url,omitempty"`
}

// ApplyDefaults fills unset fields: date defaults to tomorrow, time to
// 18:00, party size to 2, purpose to "dinner", model to defaultModel.
func (r *Request) ApplyDefaults(now time.Time, defaultModel string) {
	if r.Date == "" {
		r.Date = now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	if r.Time == "" {
		r.Time = "18:00"
	}
	if r.PartySize == 0 {
		r.PartySize = 2
	}
	if r.Purpose == "" {
		r.Purpose = "dinner"
	}
	if r.Model == "" {
		r.Model = defaultModel
	}
}

// Validate checks the request shape. Call after ApplyDefaults.
func (r Request) Validate() error {
	if strings.TrimSpace(r.City) == "" && r.RestaurantName == "" && !r.HasCoordinates() {
		return fmt.Errorf("city required")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("invalid date (want YYYY-MM-DD)")
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return fmt.Errorf("invalid time (want HH:MM)")
	}
	if r.PartySize < 1 {
		return fmt.Errorf("party_size must be >= 1")
	}
	if r.CallbackURL != "" {
		u, err := url.Parse(r.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid callback_url")
		}
	}
	return nil
}

// HasCoordinates reports whether the caller pinned the search location.
func (r Request) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Restaurant describes the restaurant the agent selected.
type Restaurant struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	PhoneNumber   string   `json:"phone_number,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	PriceRange    string   `json:"price_range,omitempty"`
	CuisineType   string   `json:"cuisine_type,omitempty"`
	PopularDishes []string `json:"popular_dishes,omitempty"`
	OpeningHours  string   `json:"opening_hours,omitempty"`
}

// Details describes a confirmed (or attempted) table reservation.
// Absent entirely when the agent ran in test mode.
type Details struct {
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	PartySize          int    `json:"party_size"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	SpecialRequests    string `json:"special_requests,omitempty"`
	Status             string `json:"status"`
}

// Result is the structured outcome of a successful agent run.
type Result struct {
	Restaurant      Restaurant `json:"restaurant"`
	Booking         *Details   `json:"booking,omitempty"`
	AdditionalNotes string     `json:"additional_notes,omitempty"`
}

// Job is one tracked booking lifecycle. Exactly one of Result/Error is
// set once State is terminal; neither is set before.
type Job struct {
	ID      string  `json:"id"`
	State   Status  `json:"state"`
	Request Request `json:"request"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewJobID allocates a fresh booking identifier. The booking_ prefix is
// kept from the original wire contract; the uuid avoids the collisions a
// timestamp id would have under concurrent submissions.
func NewJobID() string {
	return "booking_" + uuid.NewString()
}
