package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.circuit.Connections()
	if id := r.URL.Query().Get("component"); id != "" {
		filtered := conns[:0]
		for _, c := range conns {
			if c.Touches(id) {
				filtered = append(filtered, c)
			}
		}
		conns = filtered
	}
	s.respondJSON(w, http.StatusOK, conns)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.circuit.Connection(r.PathValue("id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("connection %s not found", r.PathValue("id")))
		return
	}
	s.respondJSON(w, http.StatusOK, conn)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req validation.ConnectRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}

	conn, err := s.circuit.Connect(req.SourceID, circuit.Port(req.SourcePort), req.TargetID, circuit.Port(req.TargetPort))
	if err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.circuit.Disconnect(r.PathValue("id")); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
