// Package graphql exposes the circuit over a GraphQL schema: queries read the
// graph, mutations call the same operations as the REST API.
package graphql

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/graphql-go/graphql"
)

// GenerateSchema builds the query and mutation schema over c.
func GenerateSchema(c *circuit.Circuit) (graphql.Schema, error) {
	t := newTypes(c)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields(c, t),
	})
	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: mutationFields(c, t),
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func queryFields(c *circuit.Circuit, t *types) graphql.Fields {
	return graphql.Fields{
		// Always include a health check query
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		},
		"component": &graphql.Field{
			Type: t.component,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				comp, ok := c.Component(id)
				if !ok {
					return nil, circuit.NewError("component").Component(id).Cause(circuit.ErrComponentNotFound).Err()
				}
				return comp, nil
			},
		},
		"components": &graphql.Field{
			Type: graphql.NewList(t.component),
			Args: graphql.FieldConfigArgument{
				"type": &graphql.ArgumentConfig{Type: t.componentType},
				"isOn": &graphql.ArgumentConfig{Type: graphql.Boolean},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				wantType, byType := p.Args["type"].(circuit.ComponentType)
				wantOn, byState := p.Args["isOn"].(bool)
				out := make([]circuit.Component, 0)
				for _, comp := range c.Components() {
					if byType && comp.Type != wantType {
						continue
					}
					if byState && comp.IsOn != wantOn {
						continue
					}
					out = append(out, comp)
				}
				return out, nil
			},
		},
		"connection": &graphql.Field{
			Type: t.connection,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				conn, ok := c.Connection(id)
				if !ok {
					return nil, circuit.NewError("connection").Connection(id).Cause(circuit.ErrConnectionNotFound).Err()
				}
				return conn, nil
			},
		},
		"connections": &graphql.Field{
			Type: graphql.NewList(t.connection),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return c.Connections(), nil
			},
		},
		"activity": &graphql.Field{
			Type: graphql.NewList(t.activity),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return c.Activity(), nil
			},
		},
		"loops": &graphql.Field{
			Type: graphql.NewList(graphql.NewList(graphql.ID)),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				loops := c.Loops()
				out := make([][]string, len(loops))
				for i, l := range loops {
					out[i] = l
				}
				return out, nil
			},
		},
		"stats": &graphql.Field{
			Type: t.stats,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return c.Stats(), nil
			},
		},
		"gesture": &graphql.Field{
			Type: t.gesture,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				g, ok := c.Gesture()
				if !ok {
					return nil, nil
				}
				return g, nil
			},
		},
	}
}

// enumName converts a component type to its GraphQL enum value name.
func enumName(s string) string {
	return strings.ToUpper(s)
}
