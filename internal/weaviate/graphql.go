package weaviate

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
)

// NearText searches by text concepts vectorized on the server.
type NearText struct {
	Concepts  []string
	Certainty float64
}

// NearVector searches by a vector computed by the caller.
type NearVector struct {
	Vector    []float32
	Certainty float64
}

// GetQuery is a GraphQL Get over one class.
type GetQuery struct {
	Class      string
	Properties []string
	NearText   *NearText
	NearVector *NearVector

	// Limit caps the hits. Zero uses the server default.
	Limit int
}

// additional is requested on every hit.
var additional = graphql.Field{
	Name: "_additional",
	Fields: []graphql.Field{
		{Name: "id"},
		{Name: "certainty"},
		{Name: "distance"},
	},
}

// Check rejects class or property names that are not GraphQL names.
func (q GetQuery) Check() error {
	if err := CheckName(q.Class); err != nil {
		return err
	}
	for _, p := range q.Properties {
		if err := CheckName(p); err != nil {
			return err
		}
	}
	return nil
}

// Get runs q and returns the raw hits in server order.
// Each hit carries the requested properties plus an "_additional" map.
// Invalid names are rejected before anything is sent.
func (c *Client) Get(ctx context.Context, q GetQuery) ([]map[string]any, error) {
	if err := q.Check(); err != nil {
		return nil, err
	}

	fields := make([]graphql.Field, 0, len(q.Properties)+1)
	for _, p := range q.Properties {
		fields = append(fields, graphql.Field{Name: p})
	}
	fields = append(fields, additional)

	get := c.db.GraphQL().Get().
		WithClassName(q.Class).
		WithFields(fields...)
	switch {
	case q.NearText != nil:
		get = get.WithNearText(c.db.GraphQL().NearTextArgBuilder().
			WithConcepts(q.NearText.Concepts).
			WithCertainty(float32(q.NearText.Certainty)))
	case q.NearVector != nil:
		get = get.WithNearVector(c.db.GraphQL().NearVectorArgBuilder().
			WithVector(q.NearVector.Vector).
			WithCertainty(float32(q.NearVector.Certainty)))
	}
	if q.Limit > 0 {
		get = get.WithLimit(q.Limit)
	}

	ctx, cancel := c.call(ctx)
	defer cancel()

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		var gqlErrs GraphQLErrors
		if err := convert(resp.Errors, &gqlErrs); err != nil {
			return nil, err
		}
		return nil, gqlErrs
	}

	var data struct {
		Get map[string][]map[string]any `json:"Get"`
	}
	if err := convert(resp.Data, &data); err != nil {
		return nil, err
	}
	return data.Get[q.Class], nil
}
