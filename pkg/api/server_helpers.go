package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-circuits/pkg/api/middleware"
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		RequestID: w.Header().Get(middleware.RequestIDHeader),
	}
	s.respondJSON(w, status, response)
}

// pathComponentID returns the {id} path value, replying 400 when it is not
// shaped like a component id.
func (s *Server) pathComponentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := validation.ValidateComponentID(id); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// statusForError maps a circuit error to an HTTP status.
func statusForError(err error) int {
	switch {
	case circuit.IsNotFound(err):
		return http.StatusNotFound
	case circuit.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respondCircuitError reports a rejected operation. Anything that is not a
// CircuitError is an internal failure and its detail stays in the log.
func (s *Server) respondCircuitError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *circuit.CircuitError
	if !errors.As(err, &cerr) {
		s.logger.Error("operation failed",
			logging.Path(r.URL.Path),
			logging.RequestID(middleware.GetRequestID(r)),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "operation failed")
		return
	}
	s.respondError(w, statusForError(err), err.Error())
}

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// newRequestDecoder creates a new request decoder for the given request.
func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rd.err = fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
			rd.statusCode = http.StatusRequestEntityTooLarge
			return rd
		}
		rd.err = fmt.Errorf("invalid request body: %w", err)
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// Validate runs the struct's validate tags.
func (rd *requestDecoder) Validate(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidateRequest(v); err != nil {
		rd.err = err
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}

// respondComponent writes the current state of id, typically after a mutation.
func (s *Server) respondComponent(w http.ResponseWriter, status int, id string) {
	comp, ok := s.circuit.Component(id)
	if !ok {
		// Deleted concurrently between the mutation and the read.
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	s.respondJSON(w, status, comp)
}
