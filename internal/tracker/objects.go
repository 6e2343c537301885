package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// DataObject is one stored object. The identifier is its own field and never
// lives inside Properties, so a user property called "id" or "uuid" is just data.
type DataObject struct {
	ID         string         `json:"id"`
	Class      string         `json:"class"`
	Properties map[string]any `json:"properties"`
	Vector     []float32      `json:"vector,omitempty"`

	// Certainty is set on search hits only.
	Certainty float64 `json:"certainty,omitempty"`
}

func fromWire(obj *weaviate.Object) *DataObject {
	props := obj.Properties
	if props == nil {
		props = map[string]any{}
	}
	return &DataObject{
		ID:         obj.ID,
		Class:      obj.Class,
		Properties: props,
		Vector:     obj.Vector,
	}
}

// AddObject stores properties as a new object of class under a freshly
// generated UUID v4 and returns that UUID.
func (t *Tracker) AddObject(ctx context.Context, class string, properties map[string]any) (string, error) {
	id := uuid.NewString()
	op := "add object " + objectRef(class, id)

	vector, err := t.documentVector(ctx, properties)
	if err != nil {
		return "", opError(op, ErrConnection, err)
	}

	log.Debug("Creating object", "class", class, "id", id, "properties", len(properties))

	_, err = t.client.CreateObject(ctx, weaviate.Object{
		Class:      class,
		ID:         id,
		Properties: properties,
		Vector:     vector,
	})
	if err != nil {
		return "", opError(op, classify(err, nil, ErrValidation), err)
	}
	return id, nil
}

// UpdateObject merges properties into an existing object. Properties that are
// not named keep their stored values.
func (t *Tracker) UpdateObject(ctx context.Context, class, id string, properties map[string]any) error {
	op := "update object " + objectRef(class, id)

	var vector []float32
	if t.embedder != nil {
		// The vector has to describe the merged object, not just the patch.
		current, err := t.client.GetObject(ctx, class, id)
		if err != nil {
			return opError(op, classify(err, ErrNotFound, ErrValidation), err)
		}
		merged := make(map[string]any, len(current.Properties)+len(properties))
		for k, v := range current.Properties {
			merged[k] = v
		}
		for k, v := range properties {
			merged[k] = v
		}
		if vector, err = t.documentVector(ctx, merged); err != nil {
			return opError(op, ErrConnection, err)
		}
	}

	log.Debug("Merging object", "class", class, "id", id, "properties", len(properties))

	err := t.client.MergeObject(ctx, weaviate.Object{
		Class:      class,
		ID:         id,
		Properties: properties,
		Vector:     vector,
	})
	if err != nil {
		return opError(op, classify(err, ErrNotFound, ErrValidation), err)
	}
	return nil
}

// ReplaceObject overwrites all properties of an existing object.
func (t *Tracker) ReplaceObject(ctx context.Context, class, id string, properties map[string]any) error {
	op := "replace object " + objectRef(class, id)

	vector, err := t.documentVector(ctx, properties)
	if err != nil {
		return opError(op, ErrConnection, err)
	}

	log.Debug("Replacing object", "class", class, "id", id, "properties", len(properties))

	err = t.client.ReplaceObject(ctx, weaviate.Object{
		Class:      class,
		ID:         id,
		Properties: properties,
		Vector:     vector,
	})
	if err != nil {
		return opError(op, classify(err, ErrNotFound, ErrValidation), err)
	}
	return nil
}

// GetObject fetches one object. When properties are named, only those are kept.
func (t *Tracker) GetObject(ctx context.Context, class, id string, properties ...string) (*DataObject, error) {
	obj, err := t.client.GetObject(ctx, class, id)
	if err != nil {
		return nil, opError("get object "+objectRef(class, id), classify(err, ErrNotFound, nil), err)
	}

	result := fromWire(obj)
	result.Properties = project(result.Properties, properties)
	return result, nil
}

// DeleteObject removes one object.
func (t *Tracker) DeleteObject(ctx context.Context, class, id string) error {
	log.Debug("Deleting object", "class", class, "id", id)

	if err := t.client.DeleteObject(ctx, class, id); err != nil {
		return opError("delete object "+objectRef(class, id), classify(err, ErrNotFound, nil), err)
	}
	return nil
}

// project keeps only the named keys. No names keeps everything.
func project(props map[string]any, names []string) map[string]any {
	if len(names) == 0 {
		return props
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := props[name]; ok {
			out[name] = v
		}
	}
	return out
}

// documentVector embeds the text of properties, or returns nil without an embedder.
func (t *Tracker) documentVector(ctx context.Context, properties map[string]any) ([]float32, error) {
	if t.embedder == nil {
		return nil, nil
	}

	text := DocumentText(properties)
	if text == "" {
		log.Debug("Object has no text to embed, storing without vector")
		return nil, nil
	}

	vectors, err := t.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed object: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return vectors[0], nil
}

// DocumentText joins the string-valued properties, ordered by key, into the
// text that represents an object for client-side embedding.
func DocumentText(properties map[string]any) string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := properties[k].(type) {
		case string:
			if v != "" {
				parts = append(parts, v)
			}
		case []string:
			parts = append(parts, v...)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}
