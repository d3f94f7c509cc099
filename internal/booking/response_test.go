package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleJob(state Status) Job {
	return Job{
		ID:    "booking_test",
		State: state,
		Request: Request{
			City:      "Paris",
			Date:      "2025-05-20",
			Time:      "19:30",
			PartySize: 4,
			Purpose:   "dinner",
			Model:     "gpt-4.1",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestAcceptedResponse(t *testing.T) {
	resp := AcceptedResponse(sampleJob(StatusAccepted))
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, "booking_test", resp.BookingID)
	assert.Nil(t, resp.Details)
	assert.Contains(t, resp.Message, "Booking process started")
	assert.Contains(t, resp.Message, "booking ID")
}

func TestAcceptedResponseTestMode(t *testing.T) {
	j := sampleJob(StatusAccepted)
	j.Request.TestMode = true
	resp := AcceptedResponse(j)
	assert.Contains(t, resp.Message, "Test mode - Restaurant information retrieval started")
}

func TestStatusResponseRunningRendersProcessing(t *testing.T) {
	resp := StatusResponse(sampleJob(StatusRunning))
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "Booking in progress...", resp.Message)
	require.NotNil(t, resp.Details)
	assert.Nil(t, resp.Details.Result)
	assert.Empty(t, resp.Details.Error)
}

func TestStatusResponseCompleted(t *testing.T) {
	j := sampleJob(StatusCompleted)
	j.Result = &Result{
		Restaurant: Restaurant{Name: "Chez Test", Address: "1 Rue du Test"},
		Booking: &Details{
			Date: "2025-05-20", Time: "19:30", PartySize: 4, Status: "confirmed",
		},
	}
	resp := StatusResponse(j)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "Booking completed", resp.Message)
	require.NotNil(t, resp.Details.Result)
	assert.Equal(t, "Chez Test", resp.Details.Result.Restaurant.Name)
	assert.Empty(t, resp.Details.Error)
}

func TestStatusResponseFailed(t *testing.T) {
	j := sampleJob(StatusFailed)
	j.Error = "city not found"
	resp := StatusResponse(j)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "Operation failed: city not found", resp.Message)
	assert.Nil(t, resp.Details.Result)
	assert.Equal(t, "city not found", resp.Details.Error)
}

func TestStatusResponseTestModeMessages(t *testing.T) {
	j := sampleJob(StatusRunning)
	j.Request.TestMode = true
	assert.Equal(t, "Restaurant information retrieval in progress...", StatusResponse(j).Message)

	j.State = StatusCompleted
	j.Result = &Result{Restaurant: Restaurant{Name: "Chez Test"}}
	assert.Equal(t, "Restaurant information retrieval completed", StatusResponse(j).Message)
}

// The details object flattens the echoed request fields next to the
// result, matching the original wire format.
func TestResponseDetailsFlattenJSON(t *testing.T) {
	j := sampleJob(StatusCompleted)
	j.Result = &Result{Restaurant: Restaurant{Name: "Chez Test", Address: "1 Rue du Test"}}

	raw, err := json.Marshal(StatusResponse(j))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	details, ok := m["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris", details["city"])
	assert.Equal(t, float64(4), details["party_size"])
	_, hasResult := details["result"]
	assert.True(t, hasResult)
	_, hasError := details["error"]
	assert.False(t, hasError)
}
