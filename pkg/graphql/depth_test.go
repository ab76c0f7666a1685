package graphql

import (
	"testing"

	"github.com/graphql-go/graphql/language/parser"
)

func TestCalculateQueryDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"single field", `{ health }`, 1},
		{"list of scalars", `{ components { id name } }`, 2},
		{"nested", `{ components { outgoing { target { id } } } }`, 4},
		{"introspection ignored", `{ __schema { types { name } } }`, 0},
		{"inline fragment", `{ components { ... on Component { incoming { id } } } }`, 3},
		{"named fragment", `query { components { ...f } } fragment f on Component { outgoing { source { id } } }`, 4},
		{"deepest branch wins", `{ stats { components } components { outgoing { target { outgoing { id } } } } }`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parser.Parse(parser.ParseParams{Source: tt.query})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := calculateQueryDepth(doc); got != tt.want {
				t.Errorf("calculateQueryDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateQueryDepth(t *testing.T) {
	deep := `{ components { outgoing { target { outgoing { target { outgoing { id } } } } } } }`
	if err := ValidateQueryDepth(deep, DefaultMaxDepth); err == nil {
		t.Error("Expected depth error for a seven-level query")
	}
	if err := ValidateQueryDepth(`{ components { id } }`, DefaultMaxDepth); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateQueryDepth(`{ components {`, DefaultMaxDepth); err == nil {
		t.Error("Expected parse error")
	}
}

func TestExecute_DepthLimit(t *testing.T) {
	_, schema, _ := newTestSchema(t)
	result := ExecuteQuery(`{ components { outgoing { target { outgoing { target { outgoing { id } } } } } } }`, schema)
	if !result.HasErrors() {
		t.Fatal("Expected depth limit error")
	}
	if result.Data != nil {
		t.Errorf("Expected no data, got %v", result.Data)
	}
}
