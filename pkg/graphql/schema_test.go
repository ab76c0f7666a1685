package graphql

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSchema builds a circuit with switch -> wire -> light and a schema over it.
func newTestSchema(t *testing.T) (*circuit.Circuit, graphql.Schema, map[string]string) {
	t.Helper()
	c := circuit.New(circuit.WithLogger(logging.NewNopLogger()))
	ids := make(map[string]string)
	for _, ct := range []circuit.ComponentType{circuit.TypeSwitch, circuit.TypeWire, circuit.TypeLight} {
		comp, err := c.AddComponent(ct, circuit.Position{})
		require.NoError(t, err)
		ids[string(ct)] = comp.ID
	}
	_, err := c.Connect(ids["switch"], circuit.PortOutput, ids["wire"], circuit.PortInput)
	require.NoError(t, err)
	_, err = c.Connect(ids["wire"], circuit.PortOutput, ids["light"], circuit.PortInput)
	require.NoError(t, err)

	schema, err := GenerateSchema(c)
	require.NoError(t, err)
	return c, schema, ids
}

// run executes a query and decodes its data into out.
func run(t *testing.T, schema graphql.Schema, query string, vars map[string]any, out any) []string {
	t.Helper()
	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query, VariableValues: vars})
	var messages []string
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
	}
	if out != nil && result.Data != nil {
		data, err := json.Marshal(result.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return messages
}

func TestSchema_HasRootTypes(t *testing.T) {
	_, schema, _ := newTestSchema(t)
	require.NotNil(t, schema.QueryType())
	require.NotNil(t, schema.MutationType())
	for _, name := range []string{"components", "component", "connections", "activity", "loops", "stats", "gesture"} {
		assert.Contains(t, schema.QueryType().Fields(), name)
	}
}

func TestQuery_Components(t *testing.T) {
	_, schema, ids := newTestSchema(t)

	var out struct {
		Components []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			IsOn     bool   `json:"isOn"`
			Outgoing []struct {
				TargetID string `json:"targetId"`
			} `json:"outgoing"`
		} `json:"components"`
	}
	errs := run(t, schema, `{ components { id type isOn outgoing { targetId } } }`, nil, &out)
	require.Empty(t, errs)
	require.Len(t, out.Components, 3)
	assert.Equal(t, "SWITCH", out.Components[0].Type)
	require.Len(t, out.Components[0].Outgoing, 1)
	assert.Equal(t, ids["wire"], out.Components[0].Outgoing[0].TargetID)
}

func TestQuery_ComponentsFilter(t *testing.T) {
	_, schema, ids := newTestSchema(t)

	var out struct {
		Components []struct {
			ID string `json:"id"`
		} `json:"components"`
	}
	errs := run(t, schema, `{ components(type: LIGHT) { id } }`, nil, &out)
	require.Empty(t, errs)
	require.Len(t, out.Components, 1)
	assert.Equal(t, ids["light"], out.Components[0].ID)
}

func TestQuery_ComponentNotFound(t *testing.T) {
	_, schema, _ := newTestSchema(t)
	errs := run(t, schema, `{ component(id: "light-1") { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "component not found")
}

func TestMutation_ToggleLightsThrough(t *testing.T) {
	c, schema, ids := newTestSchema(t)

	var out struct {
		ToggleSwitch struct {
			IsOn bool `json:"isOn"`
		} `json:"toggleSwitch"`
	}
	errs := run(t, schema, `mutation($id: ID!) { toggleSwitch(id: $id) { isOn } }`,
		map[string]any{"id": ids["switch"]}, &out)
	require.Empty(t, errs)
	assert.True(t, out.ToggleSwitch.IsOn)

	light, _ := c.Component(ids["light"])
	assert.True(t, light.IsOn)

	var lights struct {
		Components []struct {
			ID string `json:"id"`
		} `json:"components"`
	}
	run(t, schema, `{ components(type: LIGHT, isOn: true) { id } }`, nil, &lights)
	assert.Len(t, lights.Components, 1)
}

func TestMutation_AddConnectConfigure(t *testing.T) {
	c, schema, ids := newTestSchema(t)

	var added struct {
		AddComponent struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"addComponent"`
	}
	errs := run(t, schema, `mutation { addComponent(type: BUTTON, x: 10, y: 20) { id name } }`, nil, &added)
	require.Empty(t, errs)
	assert.Equal(t, "Button", added.AddComponent.Name)

	var connected struct {
		Connect struct {
			Source struct {
				ID string `json:"id"`
			} `json:"source"`
		} `json:"connect"`
	}
	errs = run(t, schema, `mutation($s: ID!, $t: ID!) { connect(sourceId: $s, targetId: $t) { source { id } } }`,
		map[string]any{"s": added.AddComponent.ID, "t": ids["light"]}, &connected)
	require.Empty(t, errs)
	assert.Equal(t, added.AddComponent.ID, connected.Connect.Source.ID)

	errs = run(t, schema, `mutation($id: ID!) { configureComponent(id: $id, brightness: 40, color: "#00ff00") { id } }`,
		map[string]any{"id": ids["light"]}, nil)
	require.Empty(t, errs)
	light, _ := c.Component(ids["light"])
	assert.Equal(t, 40, light.Properties.Brightness)
	assert.Equal(t, "#00ff00", light.Properties.Color)

	errs = run(t, schema, `mutation($id: ID!) { configureComponent(id: $id, interval: 3) { id } }`,
		map[string]any{"id": ids["light"]}, nil)
	assert.NotEmpty(t, errs)
}

func TestMutation_Rejections(t *testing.T) {
	_, schema, ids := newTestSchema(t)

	tests := []struct {
		name  string
		query string
		vars  map[string]any
	}{
		{"toggle a light", `mutation($id: ID!) { toggleSwitch(id: $id) { id } }`, map[string]any{"id": ids["light"]}},
		{"duplicate connection", `mutation($s: ID!, $t: ID!) { connect(sourceId: $s, targetId: $t) { id } }`,
			map[string]any{"s": ids["switch"], "t": ids["wire"]}},
		{"disconnect unknown", `mutation { disconnect(id: "conn-x") { success } }`, nil},
		{"cancel without gesture", `mutation { cancelConnection }`, nil},
		{"zero timer steps", `mutation { advanceTimers(steps: 0) { componentId } }`, nil},
		{"too many timer steps", `mutation { advanceTimers(steps: 3601) { componentId } }`, nil},
		{"toggle a wire-fed light", `mutation($id: ID!) { toggleLight(id: $id) { id } }`, map[string]any{"id": ids["light"]}},
		{"malformed component id", `mutation { deleteComponent(id: "bogus") { success } }`, nil},
		{"connect from a malformed id", `mutation($t: ID!) { connect(sourceId: "lamp-1", targetId: $t) { id } }`,
			map[string]any{"t": ids["light"]}},
		{"begin on a malformed id", `mutation { beginConnection(componentId: "light-", port: INPUT) { port } }`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, run(t, schema, tt.query, tt.vars, nil))
		})
	}
}

func TestMutation_Gesture(t *testing.T) {
	c, schema, ids := newTestSchema(t)
	sensor, err := c.AddComponent(circuit.TypeSensor, circuit.Position{})
	require.NoError(t, err)

	errs := run(t, schema, `mutation($id: ID!) { beginConnection(componentId: $id, port: OUTPUT) { componentId port } }`,
		map[string]any{"id": sensor.ID}, nil)
	require.Empty(t, errs)

	var pending struct {
		Gesture struct {
			ComponentID string `json:"componentId"`
			Port        string `json:"port"`
		} `json:"gesture"`
	}
	run(t, schema, `{ gesture { componentId port } }`, nil, &pending)
	assert.Equal(t, sensor.ID, pending.Gesture.ComponentID)
	assert.Equal(t, "OUTPUT", pending.Gesture.Port)

	errs = run(t, schema, `mutation($id: ID!) { completeConnection(componentId: $id, port: INPUT) { id } }`,
		map[string]any{"id": ids["light"]}, nil)
	require.Empty(t, errs)
	assert.Len(t, c.Connections(), 3)

	_, ok := c.Gesture()
	assert.False(t, ok)
}

func TestQuery_LoopsAndStats(t *testing.T) {
	c, schema, ids := newTestSchema(t)
	j1, err := c.AddComponent(circuit.TypeJunction, circuit.Position{})
	require.NoError(t, err)
	j2, err := c.AddComponent(circuit.TypeJunction, circuit.Position{})
	require.NoError(t, err)
	for _, pair := range [][2]string{{ids["wire"], j1.ID}, {j1.ID, j2.ID}, {j2.ID, ids["wire"]}} {
		_, err := c.Connect(pair[0], circuit.PortOutput, pair[1], circuit.PortInput)
		require.NoError(t, err)
	}

	var out struct {
		Loops [][]string `json:"loops"`
		Stats struct {
			Components int `json:"components"`
			ByType     []struct {
				Type  string `json:"type"`
				Count int    `json:"count"`
			} `json:"byType"`
		} `json:"stats"`
	}
	errs := run(t, schema, `{ loops stats { components byType { type count } } }`, nil, &out)
	require.Empty(t, errs)
	require.Len(t, out.Loops, 1)
	assert.ElementsMatch(t, []string{ids["wire"], j1.ID, j2.ID}, out.Loops[0])
	assert.Equal(t, 5, out.Stats.Components)
	assert.Len(t, out.Stats.ByType, 4)
}

func TestMutation_AdvanceTimersBounded(t *testing.T) {
	c, schema, _ := newTestSchema(t)
	timer, err := c.AddComponent(circuit.TypeTimer, circuit.Position{})
	require.NoError(t, err)
	require.NoError(t, c.StartTimer(timer.ID))

	done := make(chan *graphql.Result, 1)
	go func() {
		done <- graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  `mutation($n: Int) { advanceTimers(steps: $n) { componentId } }`,
			VariableValues: map[string]any{"n": 2147483647},
		})
	}()
	select {
	case result := <-done:
		assert.NotEmpty(t, result.Errors, "step count above the limit is rejected")
	case <-time.After(2 * time.Second):
		t.Fatal("advanceTimers with a huge step count did not return")
	}

	got, _ := c.Component(timer.ID)
	assert.Equal(t, circuit.DefaultTimerInterval, got.Properties.TimeLeft)

	errs := run(t, schema, `mutation { advanceTimers(steps: 3600) { componentId } }`, nil, nil)
	assert.Empty(t, errs)
}

func TestMutation_ToggleLight(t *testing.T) {
	c, schema, ids := newTestSchema(t)
	lamp, err := c.AddComponent(circuit.TypeLight, circuit.Position{})
	require.NoError(t, err)
	_, err = c.Connect(ids["switch"], circuit.PortOutput, lamp.ID, circuit.PortInput)
	require.NoError(t, err)

	var out struct {
		ToggleLight struct {
			IsOn bool `json:"isOn"`
		} `json:"toggleLight"`
	}
	errs := run(t, schema, `mutation($id: ID!) { toggleLight(id: $id) { isOn } }`, map[string]any{"id": lamp.ID}, &out)
	require.Empty(t, errs)
	assert.True(t, out.ToggleLight.IsOn)

	sw, _ := c.Component(ids["switch"])
	assert.True(t, sw.IsOn, "the feeding switch follows the light")
	light, _ := c.Component(ids["light"])
	assert.True(t, light.IsOn, "the switch also feeds the wire-fed light")
}
