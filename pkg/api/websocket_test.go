package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

func dialTestSocket(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) WSMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		if msg := readMessage(t, conn); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return WSMessage{}
}

func command(t *testing.T, conn *websocket.Conn, id, op string, args any) WSMessage {
	t.Helper()
	cmd := WSCommand{ID: id, Op: op}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		cmd.Args = raw
	}
	require.NoError(t, conn.WriteJSON(cmd))
	for i := 0; i < 50; i++ {
		msg := readMessage(t, conn)
		if msg.Type == wsTypeResult && msg.ID == id {
			return msg
		}
	}
	t.Fatalf("no result for command %s", id)
	return WSMessage{}
}

func TestWebSocketSessionSnapshot(t *testing.T) {
	ts := setupTestServer(t)
	ts.add(t, circuit.TypeSwitch)

	conn := dialTestSocket(t, ts)
	msg := readMessage(t, conn)

	assert.Equal(t, wsTypeSession, msg.Type)
	assert.NotEmpty(t, msg.SessionID)
	require.NotNil(t, msg.Snapshot)
	assert.Len(t, msg.Snapshot.Components, 1)
}

func TestWebSocketStreamsStateChanges(t *testing.T) {
	ts := setupTestServer(t)
	sw := ts.add(t, circuit.TypeSwitch)
	light := ts.add(t, circuit.TypeLight)
	ts.connect(t, sw.ID, light.ID)

	conn := dialTestSocket(t, ts)
	readUntil(t, conn, wsTypeSession)
	require.Eventually(t, func() bool {
		return ts.broker.SubscriberCount(pubsub.TopicState) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ts.circuit.ToggleSwitch(sw.ID))

	for {
		msg := readUntil(t, conn, wsTypeEvent)
		require.NotNil(t, msg.Event)
		if msg.Event.Topic != pubsub.TopicState {
			continue
		}
		states := map[string]bool{}
		for _, ch := range msg.Event.Changes {
			states[ch.ComponentID] = ch.IsOn
		}
		assert.True(t, states[sw.ID])
		assert.True(t, states[light.ID])
		return
	}
}

func TestWebSocketCommands(t *testing.T) {
	ts := setupTestServer(t)
	conn := dialTestSocket(t, ts)
	readUntil(t, conn, wsTypeSession)

	res := command(t, conn, "1", "add", map[string]any{"type": "switch"})
	require.True(t, res.OK, res.Error)
	swID := res.Data.(map[string]any)["id"].(string)

	res = command(t, conn, "2", "add", map[string]any{"type": "light", "x": 100})
	require.True(t, res.OK, res.Error)
	lightID := res.Data.(map[string]any)["id"].(string)

	res = command(t, conn, "3", "connect", map[string]any{
		"source_id": swID, "source_port": "output",
		"target_id": lightID, "target_port": "input",
	})
	require.True(t, res.OK, res.Error)

	res = command(t, conn, "4", "toggle", map[string]any{"id": swID})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, true, res.Data.(map[string]any)["is_on"])

	light, _ := ts.circuit.Component(lightID)
	assert.True(t, light.IsOn)

	res = command(t, conn, "5", "configure", map[string]any{"id": lightID, "patch": map[string]any{"brightness": 10}})
	require.True(t, res.OK, res.Error)

	res = command(t, conn, "6", "loops", nil)
	require.True(t, res.OK, res.Error)
}

func TestWebSocketCommandErrors(t *testing.T) {
	ts := setupTestServer(t)
	light := ts.add(t, circuit.TypeLight)
	conn := dialTestSocket(t, ts)
	readUntil(t, conn, wsTypeSession)

	tests := []struct {
		op         string
		args       any
		wantStatus int
	}{
		{"explode", nil, http.StatusBadRequest},
		{"toggle", map[string]any{"id": "switch-1"}, http.StatusNotFound},
		{"toggle", map[string]any{"id": light.ID}, http.StatusBadRequest},
		{"toggle", map[string]any{"id": "lamp-1"}, http.StatusBadRequest},
		{"begin_connection", map[string]any{"component_id": "bogus", "port": "input"}, http.StatusBadRequest},
		{"add", map[string]any{"type": "dimmer"}, http.StatusBadRequest},
		{"advance_timers", map[string]any{"steps": 0}, http.StatusBadRequest},
		{"advance_timers", map[string]any{"steps": 3601}, http.StatusBadRequest},
		{"toggle_light", map[string]any{"id": light.ID}, http.StatusBadRequest},
		{"cancel_connection", nil, http.StatusBadRequest},
		{"toggle", "not an object", http.StatusBadRequest},
	}

	for i, tt := range tests {
		res := command(t, conn, string(rune('a'+i)), tt.op, tt.args)
		assert.False(t, res.OK, "op %s", tt.op)
		assert.Equal(t, tt.wantStatus, res.Status, "op %s: %s", tt.op, res.Error)
		assert.NotEmpty(t, res.Error)
	}

	res := command(t, conn, "begin", "begin_connection", map[string]any{"component_id": light.ID, "port": "input"})
	require.True(t, res.OK, res.Error)
	res = command(t, conn, "again", "begin_connection", map[string]any{"component_id": light.ID, "port": "input"})
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketAdvanceTimersBounded(t *testing.T) {
	ts := setupTestServer(t)
	timer := ts.add(t, circuit.TypeTimer)
	require.NoError(t, ts.circuit.StartTimer(timer.ID))
	conn := dialTestSocket(t, ts)
	readUntil(t, conn, wsTypeSession)

	res := command(t, conn, "huge", "advance_timers", map[string]any{"steps": int64(1) << 50})
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Error, "steps")

	comp, ok := ts.circuit.Component(timer.ID)
	require.True(t, ok)
	assert.Equal(t, circuit.DefaultTimerInterval, comp.Properties.TimeLeft, "rejected advance leaves the countdown alone")

	res = command(t, conn, "max", "advance_timers", map[string]any{"steps": 3600})
	require.True(t, res.OK, res.Error)
}

func TestWebSocketToggleLight(t *testing.T) {
	ts := setupTestServer(t)
	sw1 := ts.add(t, circuit.TypeSwitch)
	sw2 := ts.add(t, circuit.TypeSwitch)
	light := ts.add(t, circuit.TypeLight)
	ts.connect(t, sw1.ID, light.ID)
	ts.connect(t, sw2.ID, light.ID)
	conn := dialTestSocket(t, ts)
	readUntil(t, conn, wsTypeSession)

	res := command(t, conn, "1", "toggle_light", map[string]any{"id": light.ID})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, true, res.Data.(map[string]any)["is_on"])

	for _, id := range []string{sw1.ID, sw2.ID} {
		comp, _ := ts.circuit.Component(id)
		assert.True(t, comp.IsOn, "switch %s follows the light", id)
	}
}
