package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	comps := s.circuit.Components()

	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := circuit.ParseComponentType(raw)
		if !ok {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown component type %q", raw))
			return
		}
		filtered := comps[:0]
		for _, c := range comps {
			if c.Type == t {
				filtered = append(filtered, c)
			}
		}
		comps = filtered
	}

	sort.Slice(comps, func(i, j int) bool { return comps[i].ID < comps[j].ID })
	s.respondJSON(w, http.StatusOK, comps)
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	comp, ok := s.circuit.Component(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, comp)
}

func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	var req validation.AddComponentRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}

	comp, err := s.circuit.AddComponent(circuit.ComponentType(req.Type), circuit.Position{X: req.X, Y: req.Y})
	if err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, comp)
}

func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	if err := s.circuit.DeleteComponent(id); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfigureComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	var patch validation.ComponentPatch
	if s.newRequestDecoder(w, r).DecodeJSON(&patch).RespondError() {
		return
	}
	if err := s.circuit.Configure(id, patch); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondComponent(w, http.StatusOK, id)
}

func (s *Server) handleRenameComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	var req validation.RenameRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.circuit.RenameComponent(id, req.Name); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondComponent(w, http.StatusOK, id)
}

func (s *Server) handleMoveComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	var pos circuit.Position
	if s.newRequestDecoder(w, r).DecodeJSON(&pos).RespondError() {
		return
	}
	if err := s.circuit.MoveComponent(id, pos); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondComponent(w, http.StatusOK, id)
}

func (s *Server) handleSetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathComponentID(w, r)
	if !ok {
		return
	}
	var req validation.SensorRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}
	if err := s.circuit.SetSensor(id, req.Active); err != nil {
		s.respondCircuitError(w, r, err)
		return
	}
	s.respondComponent(w, http.StatusOK, id)
}

// componentAction adapts a body-less single-component operation (toggle,
// press, release, timer start/stop) to a handler that replies with the
// component's new state.
func (s *Server) componentAction(op func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathComponentID(w, r)
		if !ok {
			return
		}
		if err := op(id); err != nil {
			s.respondCircuitError(w, r, err)
			return
		}
		s.respondComponent(w, http.StatusOK, id)
	}
}
