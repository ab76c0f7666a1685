package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/config"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := out.String(); got != "circuitd dev\n" {
		t.Errorf("Expected %q, got %q", "circuitd dev\n", got)
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "tui", "demo", "watch", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (err %v)", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("Expected persistent --config flag")
	}
	t.Logf("✓ command tree has %d subcommands", len(root.Commands()))
}

func lightState(t *testing.T, c *circuit.Circuit, id string) bool {
	t.Helper()
	comp, ok := c.Component(id)
	if !ok {
		t.Fatalf("component %s not found", id)
	}
	return comp.IsOn
}

func TestBuildDemo(t *testing.T) {
	c := circuit.New(circuit.WithLogger(logging.NewNopLogger()))
	d, err := buildDemo(c)
	if err != nil {
		t.Fatalf("buildDemo failed: %v", err)
	}

	if got := c.Stats().Components; got != 11 {
		t.Errorf("Expected 11 components, got %d", got)
	}
	if got := len(c.Connections()); got != 8 {
		t.Errorf("Expected 8 connections, got %d", got)
	}
	for _, id := range []string{d.Ceiling, d.Garden, d.Chime, d.Flasher} {
		if lightState(t, c, id) {
			t.Errorf("Expected %s off before any input", id)
		}
	}

	// Hall alone reaches the garden through the wire and junction.
	if err := c.ToggleSwitch(d.Hall); err != nil {
		t.Fatal(err)
	}
	if !lightState(t, c, d.Garden) {
		t.Error("Expected garden light on through wire and junction")
	}
	if lightState(t, c, d.Ceiling) {
		t.Error("Expected ceiling light off with only one of two switches on")
	}

	if err := c.ToggleSwitch(d.Porch); err != nil {
		t.Fatal(err)
	}
	if !lightState(t, c, d.Ceiling) {
		t.Error("Expected ceiling light on with both switches on")
	}

	blinker, _ := c.Component(d.Blinker)
	if !blinker.Armed || blinker.Properties.Interval != 2 {
		t.Errorf("Expected armed blinker with interval 2, got %+v", blinker)
	}
	c.AdvanceTimers(2)
	if !lightState(t, c, d.Flasher) {
		t.Error("Expected flasher on after one interval")
	}
}

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	c := circuit.New(circuit.WithLogger(logging.NewNopLogger()))
	if err := runDemo(&out, c); err != nil {
		t.Fatalf("runDemo failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Garden Light=ON",
		"Ceiling Light=ON",
		"Chime Lamp=ON",
		"Flasher=ON",
		"Recent activity",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected demo output to contain %q", want)
		}
	}

	// The script ends with every light dark again.
	for _, comp := range c.Components() {
		if comp.Type == circuit.TypeLight && comp.IsOn {
			t.Errorf("Expected %s off at the end of the demo", comp.Name)
		}
	}
	if got := len(c.Activity()); got != circuit.DefaultActivityCapacity {
		t.Errorf("Expected a full activity log, got %d entries", got)
	}
}

func TestAPIConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "127.0.0.1"}

	apiConfig, err := apiConfigFrom(cfg)
	if err != nil {
		t.Fatalf("apiConfigFrom failed: %v", err)
	}
	if apiConfig.Version != version {
		t.Errorf("Expected version %q, got %q", version, apiConfig.Version)
	}
	if len(apiConfig.TrustedProxies) != 2 {
		t.Errorf("Expected 2 trusted proxies, got %d", len(apiConfig.TrustedProxies))
	}
	if got := apiConfig.CORS.AllowedOrigins; len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Errorf("Unexpected CORS origins %v", got)
	}
	if apiConfig.RateLimit == nil || apiConfig.RateLimit.BurstSize != cfg.RateLimit.Burst {
		t.Errorf("Expected rate limit from config, got %+v", apiConfig.RateLimit)
	}

	cfg.RateLimit.Enabled = false
	apiConfig, err = apiConfigFrom(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if apiConfig.RateLimit != nil {
		t.Error("Expected no rate limit when disabled")
	}

	cfg.Server.TrustedProxies = []string{"not-an-ip"}
	if _, err := apiConfigFrom(cfg); err == nil {
		t.Error("Expected error for a bad trusted proxy")
	}
}

func TestPrintEvent(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name   string
		event  pubsub.Event
		asJSON bool
		want   string
	}{
		{
			name: "state change",
			event: pubsub.Event{Topic: pubsub.TopicState, Seq: 3, Time: ts, Changes: []circuit.StateChange{
				{ComponentID: "light-1", Type: circuit.TypeLight, IsOn: true},
			}},
			want: "03:04:05.000 #3 light-1 ON\n",
		},
		{
			name:  "activity",
			event: pubsub.Event{Topic: pubsub.TopicActivity, Seq: 4, Time: ts, Activity: &circuit.ActivityEntry{Time: ts, Message: "Switch 1 is now ON"}},
			want:  "03:04:05.000 #4 Switch 1 is now ON\n",
		},
		{
			name:   "json",
			event:  pubsub.Event{Topic: pubsub.TopicActivity, Seq: 5, Time: ts, Activity: &circuit.ActivityEntry{Time: ts, Message: "x"}},
			asJSON: true,
			want:   `"message":"x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := printEvent(&out, tt.event, tt.asJSON); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Expected output containing %q, got %q", tt.want, out.String())
			}
		})
	}
}
