package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-circuits/pkg/api/middleware"
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/health"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/metrics"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

type testServer struct {
	server  *Server
	handler http.Handler
	circuit *circuit.Circuit
	broker  *pubsub.Broker
}

// setupTestServer creates a server around an empty circuit with metrics,
// health checks and an event broker attached.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logging.NewNopLogger()
	broker := pubsub.NewBroker(0)
	registry := metrics.NewRegistry()
	c := circuit.New(
		circuit.WithLogger(logger),
		circuit.WithNotifier(broker),
		circuit.WithObserver(registry),
	)

	checker := health.NewHealthChecker()
	checker.RegisterLivenessCheck("alive", health.AliveCheck())
	checker.RegisterReadinessCheck("connections", health.ConnectionIntegrityCheck(c))

	server, err := NewServer(c, broker, registry, checker, logger, Config{Version: "test"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() {
		server.Close()
		broker.Shutdown()
	})

	return &testServer{server: server, handler: server.Handler(), circuit: c, broker: broker}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func (ts *testServer) add(t *testing.T, typ circuit.ComponentType) circuit.Component {
	t.Helper()
	comp, err := ts.circuit.AddComponent(typ, circuit.Position{})
	if err != nil {
		t.Fatalf("AddComponent(%s): %v", typ, err)
	}
	return comp
}

func (ts *testServer) connect(t *testing.T, src, dst string) circuit.Connection {
	t.Helper()
	conn, err := ts.circuit.Connect(src, circuit.PortOutput, dst, circuit.PortInput)
	if err != nil {
		t.Fatalf("Connect(%s, %s): %v", src, dst, err)
	}
	return conn
}

func TestNewServer(t *testing.T) {
	ts := setupTestServer(t)

	if ts.server.config.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("Expected default body limit %d, got %d", DefaultMaxBodyBytes, ts.server.config.MaxBodyBytes)
	}
	if ts.server.rateLimiter != nil {
		t.Error("Expected no rate limiter when none is configured")
	}
	if ts.server.config.CORS == nil {
		t.Error("Expected a default CORS config")
	}

	t.Logf("✓ Server created with defaults")
}

func TestHealthEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		rr := ts.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rr.Code)
			continue
		}
		resp := decodeBody[health.Response](t, rr)
		if resp.Status != health.StatusHealthy {
			t.Errorf("GET %s: expected healthy, got %s", path, resp.Status)
		}
	}

	t.Logf("✓ Health endpoints respond")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.add(t, circuit.TypeSwitch)

	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"circuit_uptime_seconds", "circuit_mutations_total", "circuit_components"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metric %s in scrape", name)
		}
	}

	t.Logf("✓ Metrics endpoint exposes circuit metrics")
}

func TestVersionEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	resp := decodeBody[VersionResponse](t, rr)
	if resp.Version != "test" {
		t.Errorf("Expected version test, got %q", resp.Version)
	}
}

func TestRequestIDPropagatesToErrors(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/components/light-1", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
	if got := rr.Header().Get(middleware.RequestIDHeader); got != "trace-123" {
		t.Errorf("Expected request id header trace-123, got %q", got)
	}
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.RequestID != "trace-123" {
		t.Errorf("Expected request id in error body, got %q", resp.RequestID)
	}
	if resp.Code != http.StatusNotFound || resp.Error != http.StatusText(http.StatusNotFound) {
		t.Errorf("Unexpected error body: %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPut, "/components", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	logger := logging.NewNopLogger()
	c := circuit.New(circuit.WithLogger(logger))
	server, err := NewServer(c, nil, nil, nil, logger, Config{MaxBodyBytes: 16})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest(http.MethodPost, "/components", strings.NewReader(`{"type":"light","x":1000000,"y":1000000}`))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d (%s)", rr.Code, rr.Body.String())
	}
	if len(c.Components()) != 0 {
		t.Error("Expected no component to be added")
	}
}

func TestRateLimitedServer(t *testing.T) {
	logger := logging.NewNopLogger()
	c := circuit.New(circuit.WithLogger(logger))
	server, err := NewServer(c, nil, nil, nil, logger, Config{
		RateLimit: &middleware.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2, MaxClients: 10},
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()
	handler := server.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/components", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected [200 200 429], got %v", codes)
	}
}

func TestServerWithoutOptionalParts(t *testing.T) {
	logger := logging.NewNopLogger()
	c := circuit.New(circuit.WithLogger(logger))
	server, err := NewServer(c, nil, nil, nil, logger, Config{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()
	handler := server.Handler()

	for _, tt := range []struct {
		path string
		want int
	}{
		{"/metrics", http.StatusNotFound},
		{"/health", http.StatusNotFound},
		{"/ws", http.StatusServiceUnavailable},
		{"/components", http.StatusOK},
	} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.want {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.want, rr.Code)
		}
	}
}

func TestGraphQLRoute(t *testing.T) {
	ts := setupTestServer(t)
	sw := ts.add(t, circuit.TypeSwitch)

	rr := ts.do(t, http.MethodPost, "/graphql", map[string]any{
		"query":     `mutation($id: ID!) { toggleSwitch(id: $id) { id isOn } }`,
		"variables": map[string]any{"id": sw.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"isOn":true`) {
		t.Errorf("Expected switch to be on, got %s", rr.Body.String())
	}
	comp, _ := ts.circuit.Component(sw.ID)
	if !comp.IsOn {
		t.Error("Expected switch on in the circuit")
	}
}
