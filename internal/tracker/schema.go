package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// Schema types are the wire types of the backend.
type (
	Schema   = weaviate.Schema
	Class    = weaviate.Class
	Property = weaviate.Property
)

// CreateSchema creates every class in schema. If one class is rejected, the
// classes this call already created are removed again before returning.
func (t *Tracker) CreateSchema(ctx context.Context, schema Schema) error {
	var created []string
	for _, class := range schema.Classes {
		log.Debug("Creating class", "class", class.Class, "properties", len(class.Properties))

		if err := t.client.CreateClass(ctx, class); err != nil {
			t.rollbackClasses(ctx, created)
			return opError("create class "+class.Class, classify(err, nil, ErrSchema), err)
		}
		created = append(created, class.Class)
	}
	return nil
}

// rollbackClasses deletes classes created by a failed CreateSchema.
func (t *Tracker) rollbackClasses(ctx context.Context, names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		if err := t.client.DeleteClass(ctx, names[i]); err != nil {
			log.Warn("Failed to roll back class", "class", names[i], "error", err)
		}
	}
}

// DeleteAllSchemas removes every class, and with it every object, from the
// server. It returns the number of classes removed.
func (t *Tracker) DeleteAllSchemas(ctx context.Context) (int, error) {
	schema, err := t.client.GetSchema(ctx)
	if err != nil {
		return 0, opError("delete all classes", ErrConnection, err)
	}

	for i, class := range schema.Classes {
		log.Debug("Deleting class", "class", class.Class)
		if err := t.client.DeleteClass(ctx, class.Class); err != nil {
			return i, opError("delete class "+class.Class, ErrConnection, err)
		}
	}
	return len(schema.Classes), nil
}

// GetSchema returns the current schema.
func (t *Tracker) GetSchema(ctx context.Context) (*Schema, error) {
	schema, err := t.client.GetSchema(ctx)
	if err != nil {
		return nil, opError("get schema", ErrConnection, err)
	}
	return schema, nil
}

// GetClass returns one class definition.
func (t *Tracker) GetClass(ctx context.Context, name string) (*Class, error) {
	class, err := t.client.GetClass(ctx, name)
	if err != nil {
		return nil, opError("get class "+name, classify(err, ErrNotFound, nil), err)
	}
	return class, nil
}

// schemaDocument accepts either {classes: [...]} or a single class.
type schemaDocument struct {
	Classes []Class `yaml:"classes"`
	Class   `yaml:",inline"`
}

// LoadSchemaFile reads a schema definition from a JSON or YAML file.
// The file holds either a "classes" list or a single class definition.
func LoadSchemaFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, opError("read schema file", ErrIO, err)
	}

	var doc schemaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, opError("parse schema file "+path, ErrSchema, err)
	}

	switch {
	case len(doc.Classes) > 0 && doc.Class.Class != "":
		return Schema{}, opError("parse schema file "+path, ErrSchema,
			errors.New(`use either "classes" or a single "class", not both`))
	case len(doc.Classes) > 0:
		return Schema{Classes: doc.Classes}, nil
	case doc.Class.Class != "":
		return Schema{Classes: []Class{doc.Class}}, nil
	default:
		return Schema{}, opError("parse schema file "+path, ErrSchema,
			fmt.Errorf("no class definitions found"))
	}
}
