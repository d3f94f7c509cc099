package booking

// Response is the wire shape shared by the submission response, the
// status endpoint, and the webhook callback payload.
type Response struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	BookingID string           `json:"booking_id"`
	Details   *ResponseDetails `json:"details"`
}

// ResponseDetails echoes the submitted request plus the terminal
// outcome. The embedded Request flattens into the details object.
type ResponseDetails struct {
	Request
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// operation names the two modes the agent can run in; status messages
// are phrased around it, matching the original API's wording.
func operation(testMode bool) string {
	if testMode {
		return "Restaurant information retrieval"
	}
	return "Booking"
}

// AcceptedResponse is the immediate reply to a submission.
func AcceptedResponse(j Job) Response {
	op := "Booking process"
	if j.Request.TestMode {
		op = "Test mode - Restaurant information retrieval"
	}
	return Response{
		Status:    string(StatusAccepted),
		Message:   op + " started. You can check the status using the booking ID.",
		BookingID: j.ID,
		Details:   nil,
	}
}

// StatusResponse projects a job snapshot onto the wire. The running
// state is rendered as "processing" per the original contract.
func StatusResponse(j Job) Response {
	resp := Response{
		BookingID: j.ID,
		Details:   &ResponseDetails{Request: j.Request},
	}
	op := operation(j.Request.TestMode)
	switch j.State {
	case StatusAccepted:
		resp.Status = "accepted"
		prefix := "Booking process"
		if j.Request.TestMode {
			prefix = "Test mode - Restaurant information retrieval"
		}
		resp.Message = prefix + " started"
	case StatusRunning:
		resp.Status = "processing"
		resp.Message = op + " in progress..."
	case StatusCompleted:
		resp.Status = "completed"
		resp.Message = op + " completed"
		resp.Details.Result = j.Result
	case StatusFailed:
		resp.Status = "failed"
		resp.Message = "Operation failed: " + j.Error
		resp.Details.Error = j.Error
	}
	return resp
}
