package weaviate

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/weaviate/weaviate/entities/models"
)

// Schema is the full set of classes known to the server.
type Schema struct {
	Classes []Class `json:"classes" yaml:"classes"`
}

// Class is a named collection of objects and its property definitions.
type Class struct {
	Class               string         `json:"class" yaml:"class"`
	Description         string         `json:"description,omitempty" yaml:"description,omitempty"`
	Vectorizer          string         `json:"vectorizer,omitempty" yaml:"vectorizer,omitempty"`
	VectorIndexType     string         `json:"vectorIndexType,omitempty" yaml:"vectorIndexType,omitempty"`
	VectorIndexConfig   map[string]any `json:"vectorIndexConfig,omitempty" yaml:"vectorIndexConfig,omitempty"`
	InvertedIndexConfig map[string]any `json:"invertedIndexConfig,omitempty" yaml:"invertedIndexConfig,omitempty"`
	ModuleConfig        map[string]any `json:"moduleConfig,omitempty" yaml:"moduleConfig,omitempty"`
	Properties          []Property     `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Property is a typed field of a class.
type Property struct {
	Name            string         `json:"name" yaml:"name"`
	DataType        []string       `json:"dataType" yaml:"dataType"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tokenization    string         `json:"tokenization,omitempty" yaml:"tokenization,omitempty"`
	IndexFilterable *bool          `json:"indexFilterable,omitempty" yaml:"indexFilterable,omitempty"`
	IndexSearchable *bool          `json:"indexSearchable,omitempty" yaml:"indexSearchable,omitempty"`
	ModuleConfig    map[string]any `json:"moduleConfig,omitempty" yaml:"moduleConfig,omitempty"`
}

// IsReference reports whether the property points at another class.
// Cross-reference data types are class names and start with an upper-case letter.
func (p Property) IsReference() bool {
	if len(p.DataType) == 0 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(p.DataType[0])
	return unicode.IsUpper(r)
}

// PrimitiveNames returns the names of all non-reference properties, in schema order.
func (c Class) PrimitiveNames() []string {
	names := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		if !p.IsReference() {
			names = append(names, p.Name)
		}
	}
	return names
}

// GetSchema fetches every class definition.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	dump, err := c.db.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := convert(dump, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// GetClass fetches one class definition.
func (c *Client) GetClass(ctx context.Context, name string) (*Class, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	ctx, cancel := c.call(ctx)
	defer cancel()

	found, err := c.db.Schema().ClassGetter().WithClassName(name).Do(ctx)
	if err != nil {
		return nil, err
	}
	var class Class
	if err := convert(found, &class); err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass adds a class to the schema.
func (c *Client) CreateClass(ctx context.Context, class Class) error {
	var def models.Class
	if err := convert(class, &def); err != nil {
		return err
	}
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.db.Schema().ClassCreator().WithClass(&def).Do(ctx)
}

// DeleteClass removes a class and all of its objects.
func (c *Client) DeleteClass(ctx context.Context, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.db.Schema().ClassDeleter().WithClassName(name).Do(ctx)
}
