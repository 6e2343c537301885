package weaviate

import (
	"context"
	"fmt"
)

// Object is a stored data object as the REST API represents it.
type Object struct {
	Class              string         `json:"class"`
	ID                 string         `json:"id,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
	Vector             []float32      `json:"vector,omitempty"`
	CreationTimeUnix   int64          `json:"creationTimeUnix,omitempty"`
	LastUpdateTimeUnix int64          `json:"lastUpdateTimeUnix,omitempty"`
}

// ObjectList is a page of objects.
type ObjectList struct {
	Objects      []Object `json:"objects"`
	TotalResults int      `json:"totalResults"`
}

// ListOptions selects a page of objects from one class.
type ListOptions struct {
	Class string

	// Limit is the page size. Zero uses the server default.
	Limit int

	// After is the cursor: the last ID of the previous page.
	After string
}

// CreateObject stores a new object. The server assigns an ID when obj.ID is empty.
func (c *Client) CreateObject(ctx context.Context, obj Object) (*Object, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	creator := c.db.Data().Creator().
		WithClassName(obj.Class).
		WithProperties(obj.Properties)
	if obj.ID != "" {
		creator = creator.WithID(obj.ID)
	}
	if len(obj.Vector) > 0 {
		creator = creator.WithVector(obj.Vector)
	}

	created, err := creator.Do(ctx)
	if err != nil {
		return nil, err
	}
	var out Object
	if err := convert(created.Object, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetObject fetches one object by class and ID.
func (c *Client) GetObject(ctx context.Context, class, id string) (*Object, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	found, err := c.db.Data().ObjectsGetter().
		WithClassName(class).
		WithID(id).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("object %s/%s: empty response", class, id)
	}
	var out Object
	if err := convert(found[0], &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MergeObject updates the given properties and leaves the others untouched.
func (c *Client) MergeObject(ctx context.Context, obj Object) error {
	ctx, cancel := c.call(ctx)
	defer cancel()

	updater := c.db.Data().Updater().
		WithMerge().
		WithClassName(obj.Class).
		WithID(obj.ID).
		WithProperties(obj.Properties)
	if len(obj.Vector) > 0 {
		updater = updater.WithVector(obj.Vector)
	}
	return updater.Do(ctx)
}

// ReplaceObject overwrites all properties of an existing object.
func (c *Client) ReplaceObject(ctx context.Context, obj Object) error {
	ctx, cancel := c.call(ctx)
	defer cancel()

	updater := c.db.Data().Updater().
		WithClassName(obj.Class).
		WithID(obj.ID).
		WithProperties(obj.Properties)
	if len(obj.Vector) > 0 {
		updater = updater.WithVector(obj.Vector)
	}
	return updater.Do(ctx)
}

// DeleteObject removes one object.
func (c *Client) DeleteObject(ctx context.Context, class, id string) error {
	ctx, cancel := c.call(ctx)
	defer cancel()

	return c.db.Data().Deleter().
		WithClassName(class).
		WithID(id).
		Do(ctx)
}

// ListObjects returns one page of a class, ordered by ID.
func (c *Client) ListObjects(ctx context.Context, opts ListOptions) (*ObjectList, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	getter := c.db.Data().ObjectsGetter().WithClassName(opts.Class)
	if opts.Limit > 0 {
		getter = getter.WithLimit(opts.Limit)
	}
	if opts.After != "" {
		getter = getter.WithAfter(opts.After)
	}

	found, err := getter.Do(ctx)
	if err != nil {
		return nil, err
	}
	list := ObjectList{Objects: make([]Object, 0, len(found))}
	if err := convert(found, &list.Objects); err != nil {
		return nil, err
	}
	list.TotalResults = len(list.Objects)
	return &list, nil
}
