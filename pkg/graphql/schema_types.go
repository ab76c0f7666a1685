package graphql

import (
	"sort"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/graphql-go/graphql"
)

// types holds the object types shared by queries and mutations. graphql-go
// requires every named type to be created exactly once per schema.
type types struct {
	componentType *graphql.Enum
	port          *graphql.Enum
	position      *graphql.Object
	properties    *graphql.Object
	ports         *graphql.Object
	component     *graphql.Object
	connection    *graphql.Object
	activity      *graphql.Object
	typeCount     *graphql.Object
	stats         *graphql.Object
	stateChange   *graphql.Object
	gesture       *graphql.Object
	deleteResult  *graphql.Object
}

func newTypes(c *circuit.Circuit) *types {
	t := &types{}

	values := graphql.EnumValueConfigMap{}
	for _, ct := range circuit.AllTypes {
		values[enumName(string(ct))] = &graphql.EnumValueConfig{Value: ct}
	}
	t.componentType = graphql.NewEnum(graphql.EnumConfig{
		Name:   "ComponentType",
		Values: values,
	})

	t.port = graphql.NewEnum(graphql.EnumConfig{
		Name: "Port",
		Values: graphql.EnumValueConfigMap{
			"INPUT":  &graphql.EnumValueConfig{Value: circuit.PortInput},
			"OUTPUT": &graphql.EnumValueConfig{Value: circuit.PortOutput},
		},
	})

	t.position = graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"y": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	t.properties = graphql.NewObject(graphql.ObjectConfig{
		Name: "Properties",
		Fields: graphql.Fields{
			"color":        &graphql.Field{Type: graphql.String},
			"brightness":   &graphql.Field{Type: graphql.Int},
			"interval":     &graphql.Field{Type: graphql.Int},
			"timeLeft":     &graphql.Field{Type: graphql.Int},
			"value":        &graphql.Field{Type: graphql.Float},
			"defaultValue": &graphql.Field{Type: graphql.Float},
		},
	})

	t.ports = graphql.NewObject(graphql.ObjectConfig{
		Name: "Ports",
		Fields: graphql.Fields{
			"input":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"output": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	// Component and Connection refer to each other, so their fields are thunks.
	t.component = graphql.NewObject(graphql.ObjectConfig{
		Name: "Component",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"type":       &graphql.Field{Type: graphql.NewNonNull(t.componentType)},
				"name":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"isOn":       &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
				"isPressed":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
				"armed":      &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
				"position":   &graphql.Field{Type: t.position},
				"properties": &graphql.Field{Type: t.properties},
				"ports":      &graphql.Field{Type: t.ports},
				"incoming": &graphql.Field{
					Type: graphql.NewList(t.connection),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						comp := p.Source.(circuit.Component)
						return filterConnections(c, func(conn circuit.Connection) bool {
							return conn.Target == comp.ID
						}), nil
					},
				},
				"outgoing": &graphql.Field{
					Type: graphql.NewList(t.connection),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						comp := p.Source.(circuit.Component)
						return filterConnections(c, func(conn circuit.Connection) bool {
							return conn.Source == comp.ID
						}), nil
					},
				},
			}
		}),
	})

	t.connection = graphql.NewObject(graphql.ObjectConfig{
		Name: "Connection",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"sourceId": &graphql.Field{
					Type: graphql.NewNonNull(graphql.ID),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return p.Source.(circuit.Connection).Source, nil
					},
				},
				"targetId": &graphql.Field{
					Type: graphql.NewNonNull(graphql.ID),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return p.Source.(circuit.Connection).Target, nil
					},
				},
				"source": &graphql.Field{
					Type: t.component,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return lookupComponent(c, p.Source.(circuit.Connection).Source), nil
					},
				},
				"target": &graphql.Field{
					Type: t.component,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return lookupComponent(c, p.Source.(circuit.Connection).Target), nil
					},
				},
			}
		}),
	})

	t.activity = graphql.NewObject(graphql.ObjectConfig{
		Name: "ActivityEntry",
		Fields: graphql.Fields{
			"time":    &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	t.typeCount = graphql.NewObject(graphql.ObjectConfig{
		Name: "TypeCount",
		Fields: graphql.Fields{
			"type":  &graphql.Field{Type: graphql.NewNonNull(t.componentType)},
			"count": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	t.stats = graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"components":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"connections": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"powered":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"byType": &graphql.Field{
				Type: graphql.NewList(t.typeCount),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return typeCounts(p.Source.(circuit.Stats)), nil
				},
			},
		},
	})

	t.stateChange = graphql.NewObject(graphql.ObjectConfig{
		Name: "StateChange",
		Fields: graphql.Fields{
			"componentId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(circuit.StateChange).ComponentID, nil
				},
			},
			"type":      &graphql.Field{Type: graphql.NewNonNull(t.componentType)},
			"isOn":      &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"isPressed": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	t.gesture = graphql.NewObject(graphql.ObjectConfig{
		Name: "PendingGesture",
		Fields: graphql.Fields{
			"componentId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(circuit.PendingGesture).ComponentID, nil
				},
			},
			"port": &graphql.Field{Type: graphql.NewNonNull(t.port)},
		},
	})

	t.deleteResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "DeleteResult",
		Fields: graphql.Fields{
			"success": &graphql.Field{Type: graphql.Boolean},
			"id":      &graphql.Field{Type: graphql.ID},
		},
	})

	return t
}

// typeCount is one row of Stats.byType.
type typeCount struct {
	Type  circuit.ComponentType
	Count int
}

func typeCounts(stats circuit.Stats) []typeCount {
	out := make([]typeCount, 0, len(stats.ByType))
	for t, n := range stats.ByType {
		out = append(out, typeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func filterConnections(c *circuit.Circuit, keep func(circuit.Connection) bool) []circuit.Connection {
	var out []circuit.Connection
	for _, conn := range c.Connections() {
		if keep(conn) {
			out = append(out, conn)
		}
	}
	return out
}

// lookupComponent returns nil for a missing endpoint so GraphQL renders null.
func lookupComponent(c *circuit.Circuit, id string) any {
	comp, ok := c.Component(id)
	if !ok {
		return nil
	}
	return comp
}
