package api

import (
	"net/http"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

func (s *Server) gestureResponse() GestureResponse {
	g, ok := s.circuit.Gesture()
	if !ok {
		return GestureResponse{}
	}
	return GestureResponse{Pending: true, Gesture: &g}
}

func (s *Server) handleGetGesture(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.gestureResponse())
}

func (s *Server) handleBeginGesture(w http.ResponseWriter, r *http.Request) {
	var req validation.GestureRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if req.ComponentID == "" || req.Port == "" {
		s.respondError(w, http.StatusBadRequest, "component_id and port are required to begin a connection")
		return
	}
	if err := validation.ValidateComponentID(req.ComponentID); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.circuit.BeginConnection(req.ComponentID, circuit.Port(req.Port)); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.gestureResponse())
}

// handleCompleteGesture ends the gesture. An empty component_id means the
// pointer was released over no port, which cancels the gesture.
func (s *Server) handleCompleteGesture(w http.ResponseWriter, r *http.Request) {
	var req validation.GestureRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	conn, err := s.circuit.CompleteConnection(req.ComponentID, circuit.Port(req.Port))
	if err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleCancelGesture(w http.ResponseWriter, r *http.Request) {
	if err := s.circuit.CancelConnection(); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.gestureResponse())
}
