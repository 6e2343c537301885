package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// SearchOptions configures a search.
type SearchOptions struct {
	// Properties to return. Empty means every primitive property of the class.
	Properties []string

	// Certainty is the minimum similarity, in [0,1].
	Certainty float64

	// Limit caps the number of hits. Zero leaves it to the server.
	Limit int
}

// SearchOption changes SearchOptions.
type SearchOption func(*SearchOptions)

// WithProperties selects the properties returned for each hit.
func WithProperties(names ...string) SearchOption {
	return func(o *SearchOptions) {
		o.Properties = names
	}
}

// WithCertainty overrides the tracker's default threshold.
func WithCertainty(c float64) SearchOption {
	return func(o *SearchOptions) {
		o.Certainty = c
	}
}

// WithLimit caps the number of hits.
func WithLimit(n int) SearchOption {
	return func(o *SearchOptions) {
		o.Limit = n
	}
}

// Search finds the objects of class nearest to concepts, most similar first.
// Hits below the certainty threshold are never returned.
func (t *Tracker) Search(ctx context.Context, class string, concepts []string, opts ...SearchOption) ([]DataObject, error) {
	o := SearchOptions{Certainty: t.certainty}
	for _, opt := range opts {
		opt(&o)
	}
	op := "search " + class

	concepts = nonEmpty(concepts)
	if len(concepts) == 0 {
		return nil, opError(op, ErrQuery, errors.New("at least one concept is required"))
	}
	if o.Certainty < 0 || o.Certainty > 1 {
		return nil, opError(op, ErrQuery, fmt.Errorf("certainty %v is outside [0,1]", o.Certainty))
	}
	if o.Limit < 0 {
		return nil, opError(op, ErrQuery, fmt.Errorf("limit %d is negative", o.Limit))
	}
	if err := (weaviate.GetQuery{Class: class, Properties: o.Properties}).Check(); err != nil {
		return nil, opError(op, ErrQuery, err)
	}

	properties := o.Properties
	if len(properties) == 0 {
		c, err := t.client.GetClass(ctx, class)
		if err != nil {
			return nil, opError(op, classify(err, ErrQuery, ErrQuery), err)
		}
		properties = c.PrimitiveNames()
	}

	query := weaviate.GetQuery{
		Class:      class,
		Properties: properties,
		Limit:      o.Limit,
	}
	if t.embedder != nil {
		vector, err := t.conceptVector(ctx, concepts)
		if err != nil {
			return nil, opError(op, ErrConnection, err)
		}
		query.NearVector = &weaviate.NearVector{Vector: vector, Certainty: o.Certainty}
	} else {
		query.NearText = &weaviate.NearText{Concepts: concepts, Certainty: o.Certainty}
	}

	log.Debug("Searching", "class", class, "concepts", concepts, "certainty", o.Certainty, "limit", o.Limit)

	hits, err := t.client.Get(ctx, query)
	if err != nil {
		return nil, opError(op, classify(err, ErrQuery, ErrQuery), err)
	}

	results := make([]DataObject, 0, len(hits))
	for _, h := range hits {
		obj := fromHit(class, h)
		if obj.Certainty < o.Certainty {
			log.Debug("Dropping hit below threshold", "id", obj.ID, "certainty", obj.Certainty)
			continue
		}
		results = append(results, obj)
	}

	log.Debug("Search complete", "class", class, "results", len(results))
	return results, nil
}

// conceptVector embeds each concept and averages them, the way the server
// combines several nearText concepts.
func (t *Tracker) conceptVector(ctx context.Context, concepts []string) ([]float32, error) {
	vectors := make([][]float32, 0, len(concepts))
	for _, c := range concepts {
		v, err := t.embedder.EmbedQuery(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to embed concept %q: %w", c, err)
		}
		vectors = append(vectors, v)
	}
	return meanVector(vectors)
}

func meanVector(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("no vectors to combine")
	}
	dims := len(vectors[0])
	mean := make([]float32, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector dimensions differ: %d != %d", len(v), dims)
		}
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean, nil
}

// fromHit splits a GraphQL hit into properties and the _additional metadata.
func fromHit(class string, h map[string]any) DataObject {
	obj := DataObject{Class: class, Properties: make(map[string]any, len(h))}
	for k, v := range h {
		if k == "_additional" {
			continue
		}
		obj.Properties[k] = v
	}

	additional, _ := h["_additional"].(map[string]any)
	obj.ID, _ = additional["id"].(string)
	if c, ok := additional["certainty"].(float64); ok {
		obj.Certainty = c
	} else if d, ok := additional["distance"].(float64); ok {
		// Cosine distance and certainty are two views of the same score.
		obj.Certainty = 1 - d/2
	}
	return obj
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
