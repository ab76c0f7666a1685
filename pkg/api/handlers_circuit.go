package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.circuit.Snapshot())
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	changes := s.circuit.RecomputeAll()
	s.respondJSON(w, http.StatusOK, ChangesResponse{Changes: nonNil(changes), Passes: s.circuit.Passes()})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.circuit.Activity())
}

func (s *Server) handleLoops(w http.ResponseWriter, r *http.Request) {
	loops := s.circuit.Loops()
	if s.metrics != nil {
		s.metrics.SetLoops(len(loops))
	}
	s.respondJSON(w, http.StatusOK, LoopsResponse{Loops: loops, Count: len(loops)})
}

func (s *Server) handleAdvanceTimers(w http.ResponseWriter, r *http.Request) {
	var req validation.AdvanceTimersRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	changes := s.circuit.AdvanceTimers(req.Steps)
	if s.metrics != nil {
		s.metrics.RecordTimerTicks(req.Steps)
	}
	s.respondJSON(w, http.StatusOK, ChangesResponse{Changes: nonNil(changes), Passes: s.circuit.Passes()})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{
		Version: s.config.Version,
		Uptime:  time.Since(s.startTime),
		Passes:  s.circuit.Passes(),
	})
}

func nonNil(changes []circuit.StateChange) []circuit.StateChange {
	if changes == nil {
		return []circuit.StateChange{}
	}
	return changes
}
