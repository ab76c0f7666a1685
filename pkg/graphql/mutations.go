package graphql

import (
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
	"github.com/graphql-go/graphql"
)

func idArg() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
}

func mutationFields(c *circuit.Circuit, t *types) graphql.Fields {
	// componentAfter runs op on the id argument and returns the updated component.
	componentAfter := func(op func(id string) error) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (any, error) {
			id, _ := p.Args["id"].(string)
			if err := validation.ValidateComponentID(id); err != nil {
				return nil, err
			}
			if err := op(id); err != nil {
				return nil, err
			}
			return lookupComponent(c, id), nil
		}
	}
	componentField := func(op func(id string) error) *graphql.Field {
		return &graphql.Field{Type: t.component, Args: idArg(), Resolve: componentAfter(op)}
	}
	portArgs := graphql.FieldConfigArgument{
		"componentId": &graphql.ArgumentConfig{Type: graphql.ID},
		"port":        &graphql.ArgumentConfig{Type: t.port},
	}

	return graphql.Fields{
		"addComponent": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"type": &graphql.ArgumentConfig{Type: graphql.NewNonNull(t.componentType)},
				"x":    &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				"y":    &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				ct, _ := p.Args["type"].(circuit.ComponentType)
				return c.AddComponent(ct, positionArgs(p.Args))
			},
		},
		"deleteComponent": &graphql.Field{
			Type: t.deleteResult,
			Args: idArg(),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				if err := validation.ValidateComponentID(id); err != nil {
					return nil, err
				}
				if err := c.DeleteComponent(id); err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "id": id}, nil
			},
		},
		"renameComponent": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				name, _ := p.Args["name"].(string)
				return componentAfter(func(id string) error {
					return c.RenameComponent(id, name)
				})(p)
			},
		},
		"moveComponent": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"x":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				"y":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return componentAfter(func(id string) error {
					return c.MoveComponent(id, positionArgs(p.Args))
				})(p)
			},
		},
		"configureComponent": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"id":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"name":       &graphql.ArgumentConfig{Type: graphql.String},
				"color":      &graphql.ArgumentConfig{Type: graphql.String},
				"brightness": &graphql.ArgumentConfig{Type: graphql.Int},
				"interval":   &graphql.ArgumentConfig{Type: graphql.Int},
				"value":      &graphql.ArgumentConfig{Type: graphql.Float},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				patch := patchArgs(p.Args)
				return componentAfter(func(id string) error {
					return c.Configure(id, patch)
				})(p)
			},
		},
		"toggleSwitch":  componentField(c.ToggleSwitch),
		"toggleLight":   componentField(c.ToggleLight),
		"pressButton":   componentField(c.PushButtonDown),
		"releaseButton": componentField(c.PushButtonUp),
		"setSensor": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"active": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				active, _ := p.Args["active"].(bool)
				return componentAfter(func(id string) error {
					return c.SetSensor(id, active)
				})(p)
			},
		},
		"startTimer": componentField(c.StartTimer),
		"stopTimer":  componentField(c.StopTimer),
		"advanceTimers": &graphql.Field{
			Type: graphql.NewList(t.stateChange),
			Args: graphql.FieldConfigArgument{
				"steps": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				steps, _ := p.Args["steps"].(int)
				if err := validation.ValidateRequest(&validation.AdvanceTimersRequest{Steps: steps}); err != nil {
					return nil, err
				}
				return c.AdvanceTimers(steps), nil
			},
		},
		"connect": &graphql.Field{
			Type: t.connection,
			Args: graphql.FieldConfigArgument{
				"sourceId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"sourcePort": &graphql.ArgumentConfig{Type: t.port, DefaultValue: circuit.PortOutput},
				"targetId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"targetPort": &graphql.ArgumentConfig{Type: t.port, DefaultValue: circuit.PortInput},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				src, _ := p.Args["sourceId"].(string)
				dst, _ := p.Args["targetId"].(string)
				srcPort, _ := p.Args["sourcePort"].(circuit.Port)
				dstPort, _ := p.Args["targetPort"].(circuit.Port)
				for _, id := range []string{src, dst} {
					if err := validation.ValidateComponentID(id); err != nil {
						return nil, err
					}
				}
				return c.Connect(src, srcPort, dst, dstPort)
			},
		},
		"disconnect": &graphql.Field{
			Type: t.deleteResult,
			Args: idArg(),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				if err := c.Disconnect(id); err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "id": id}, nil
			},
		},
		"beginConnection": &graphql.Field{
			Type: t.gesture,
			Args: graphql.FieldConfigArgument{
				"componentId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				"port":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(t.port)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["componentId"].(string)
				port, _ := p.Args["port"].(circuit.Port)
				if err := validation.ValidateComponentID(id); err != nil {
					return nil, err
				}
				if err := c.BeginConnection(id, port); err != nil {
					return nil, err
				}
				g, _ := c.Gesture()
				return g, nil
			},
		},
		"completeConnection": &graphql.Field{
			Type: t.connection,
			Args: portArgs,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["componentId"].(string)
				port, _ := p.Args["port"].(circuit.Port)
				return c.CompleteConnection(id, port)
			},
		},
		"cancelConnection": &graphql.Field{
			Type: graphql.Boolean,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if err := c.CancelConnection(); err != nil {
					return nil, err
				}
				return true, nil
			},
		},
		"recompute": &graphql.Field{
			Type: graphql.NewList(t.stateChange),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return c.RecomputeAll(), nil
			},
		},
	}
}

func positionArgs(args map[string]any) circuit.Position {
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	return circuit.Position{X: x, Y: y}
}

// patchArgs builds a patch from whichever optional arguments were supplied.
func patchArgs(args map[string]any) validation.ComponentPatch {
	var patch validation.ComponentPatch
	if v, ok := args["name"].(string); ok {
		patch.Name = &v
	}
	if v, ok := args["color"].(string); ok {
		patch.Color = &v
	}
	if v, ok := args["brightness"].(int); ok {
		patch.Brightness = &v
	}
	if v, ok := args["interval"].(int); ok {
		patch.Interval = &v
	}
	if v, ok := args["value"].(float64); ok {
		patch.Value = &v
	}
	return patch
}
