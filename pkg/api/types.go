package api

import (
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

// API Request/Response Types. Request bodies live in pkg/validation so the
// REST and WebSocket surfaces validate the same way.

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ChangesResponse reports the state changes an operation produced.
type ChangesResponse struct {
	Changes []circuit.StateChange `json:"changes"`
	Passes  uint64                `json:"passes"`
}

// LoopsResponse lists the loops in the circuit.
type LoopsResponse struct {
	Loops []circuit.Loop `json:"loops"`
	Count int            `json:"count"`
}

// GestureResponse reports the pending connection gesture.
type GestureResponse struct {
	Pending bool                    `json:"pending"`
	Gesture *circuit.PendingGesture `json:"gesture,omitempty"`
}

// VersionResponse is returned by /version.
type VersionResponse struct {
	Version string        `json:"version"`
	Uptime  time.Duration `json:"uptime_ns"`
	Passes  uint64        `json:"passes"`
}
