package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// ExecuteQuery executes a GraphQL query against a schema
func ExecuteQuery(query string, schema graphql.Schema) *graphql.Result {
	return Execute(context.Background(), schema, query, nil, "", DefaultMaxDepth)
}

// Execute validates the query depth and then runs it. A non-positive maxDepth
// disables the depth check.
func Execute(ctx context.Context, schema graphql.Schema, query string, variables map[string]any, operationName string, maxDepth int) *graphql.Result {
	if maxDepth > 0 {
		if err := ValidateQueryDepth(query, maxDepth); err != nil {
			return &graphql.Result{
				Errors: []gqlerrors.FormattedError{
					gqlerrors.FormatError(err),
				},
			}
		}
	}

	params := graphql.Params{
		Schema:         schema,
		RequestString:  query,
		OperationName:  operationName,
		Context:        ctx,
		VariableValues: variables,
	}
	return graphql.Do(params)
}
