package api

import (
	"net/http"
	"testing"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

func TestConnectEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	sw := ts.add(t, circuit.TypeSwitch)
	wire := ts.add(t, circuit.TypeWire)
	light := ts.add(t, circuit.TypeLight)
	junction := ts.add(t, circuit.TypeJunction)

	connect := func(src, srcPort, dst, dstPort string) map[string]any {
		return map[string]any{"source_id": src, "source_port": srcPort, "target_id": dst, "target_port": dstPort}
	}

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{"Switch to wire", connect(sw.ID, "output", wire.ID, "input"), http.StatusCreated},
		{"Duplicate", connect(sw.ID, "output", wire.ID, "input"), http.StatusConflict},
		{"Switch has no input", connect(wire.ID, "output", sw.ID, "input"), http.StatusBadRequest},
		{"Wire to junction", connect(wire.ID, "output", junction.ID, "input"), http.StatusCreated},
		{"Reverse of existing", connect(junction.ID, "output", wire.ID, "input"), http.StatusConflict},
		{"Self connection", connect(wire.ID, "output", wire.ID, "input"), http.StatusBadRequest},
		{"Same port kind", connect(sw.ID, "output", light.ID, "output"), http.StatusBadRequest},
		{"Light has no output", connect(light.ID, "output", wire.ID, "input"), http.StatusBadRequest},
		{"Malformed source id", connect("bogus", "output", light.ID, "input"), http.StatusBadRequest},
		{"Missing target", connect(sw.ID, "output", "light-0", "input"), http.StatusNotFound},
		{"Wire to light", connect(wire.ID, "output", light.ID, "input"), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/connections", tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d (%s)", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}

	if n := len(ts.circuit.Connections()); n != 3 {
		t.Errorf("Expected 3 connections, got %d", n)
	}
}

func TestConnectInputFirstIsNormalised(t *testing.T) {
	ts := setupTestServer(t)
	sw := ts.add(t, circuit.TypeSwitch)
	light := ts.add(t, circuit.TypeLight)

	rr := ts.do(t, http.MethodPost, "/connections", map[string]any{
		"source_id": light.ID, "source_port": "input",
		"target_id": sw.ID, "target_port": "output",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	conn := decodeBody[circuit.Connection](t, rr)
	if conn.Source != sw.ID || conn.Target != light.ID {
		t.Errorf("Expected %s -> %s, got %s -> %s", sw.ID, light.ID, conn.Source, conn.Target)
	}
}

func TestListGetDisconnect(t *testing.T) {
	ts := setupTestServer(t)
	sw := ts.add(t, circuit.TypeSwitch)
	light := ts.add(t, circuit.TypeLight)
	other := ts.add(t, circuit.TypeLight)
	conn := ts.connect(t, sw.ID, light.ID)
	ts.connect(t, sw.ID, other.ID)
	ts.circuit.ToggleSwitch(sw.ID)

	rr := ts.do(t, http.MethodGet, "/connections", nil)
	if all := decodeBody[[]circuit.Connection](t, rr); len(all) != 2 {
		t.Errorf("Expected 2 connections, got %d", len(all))
	}

	rr = ts.do(t, http.MethodGet, "/connections?component="+light.ID, nil)
	if touching := decodeBody[[]circuit.Connection](t, rr); len(touching) != 1 {
		t.Errorf("Expected 1 connection touching %s, got %d", light.ID, len(touching))
	}

	rr = ts.do(t, http.MethodGet, "/connections/"+conn.ID, nil)
	if got := decodeBody[circuit.Connection](t, rr); got != conn {
		t.Errorf("Expected %+v, got %+v", conn, got)
	}

	rr = ts.do(t, http.MethodDelete, "/connections/"+conn.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rr.Code)
	}
	if l, _ := ts.circuit.Component(light.ID); l.IsOn {
		t.Error("Expected disconnected light to go off")
	}
	if l, _ := ts.circuit.Component(other.ID); !l.IsOn {
		t.Error("Expected the other light to stay on")
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr = ts.do(t, method, "/connections/"+conn.ID, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s removed connection: expected 404, got %d", method, rr.Code)
		}
	}
}
