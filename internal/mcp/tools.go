package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blevlabs/TuningTracker/internal/tracker"
)

type tool struct {
	def Tool
	run func(ctx context.Context, args json.RawMessage) (string, error)
}

func (s *Server) register(def Tool, run func(ctx context.Context, args json.RawMessage) (string, error)) {
	if s.tools == nil {
		s.tools = make(map[string]tool)
	}
	s.tools[def.Name] = tool{def: def, run: run}
	s.order = append(s.order, def.Name)
}

var (
	classProperty = Property{Type: "string", Description: "Class name, e.g. Article"}
	idProperty    = Property{Type: "string", Description: "Object UUID"}
	propsProperty = Property{
		Type:        "array",
		Description: "Property names to return (default: all)",
		Items:       &Property{Type: "string"},
	}
)

func (s *Server) registerTools() {
	s.register(Tool{
		Name:        "tracker_search",
		Description: "Semantic search. Returns the objects of a class most similar to the given concepts, most similar first.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"class": classProperty,
				"concepts": {
					Type:        "array",
					Description: "Concepts to search for, in natural language",
					Items:       &Property{Type: "string"},
				},
				"certainty": {
					Type:        "number",
					Description: "Minimum similarity in [0,1] (default: configured threshold)",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of results",
				},
				"properties": propsProperty,
			},
			Required: []string{"class", "concepts"},
		},
	}, s.toolSearch)

	s.register(Tool{
		Name:        "tracker_get_object",
		Description: "Fetch one object by class and UUID.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"class":      classProperty,
				"id":         idProperty,
				"properties": propsProperty,
			},
			Required: []string{"class", "id"},
		},
	}, s.toolGetObject)

	s.register(Tool{
		Name:        "tracker_add_object",
		Description: "Store a new object. Returns the generated UUID.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"class": classProperty,
				"properties": {
					Type:        "object",
					Description: "Property values, keyed by property name",
				},
			},
			Required: []string{"class", "properties"},
		},
	}, s.toolAddObject)

	s.register(Tool{
		Name:        "tracker_delete_object",
		Description: "Delete one object by class and UUID.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"class": classProperty,
				"id":    idProperty,
			},
			Required: []string{"class", "id"},
		},
	}, s.toolDeleteObject)

	s.register(Tool{
		Name:        "tracker_export",
		Description: "Write every object of a class to a JSON file on the server host.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"class": classProperty,
				"path": {
					Type:        "string",
					Description: "Output file",
					Default:     tracker.DefaultExportPath,
				},
				"properties": propsProperty,
			},
			Required: []string{"class"},
		},
	}, s.toolExport)

	s.register(Tool{
		Name:        "tracker_list_classes",
		Description: "List the classes in the schema with their properties.",
		InputSchema: JSONSchema{Type: "object"},
	}, s.toolListClasses)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func (s *Server) toolSearch(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Class      string   `json:"class"`
		Concepts   []string `json:"concepts"`
		Certainty  *float64 `json:"certainty"`
		Limit      int      `json:"limit"`
		Properties []string `json:"properties"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("class", args.Class); err != nil {
		return "", err
	}

	opts := []tracker.SearchOption{tracker.WithLimit(args.Limit), tracker.WithProperties(args.Properties...)}
	if args.Certainty != nil {
		opts = append(opts, tracker.WithCertainty(*args.Certainty))
	}

	results, err := s.backend.Search(ctx, args.Class, args.Concepts, opts...)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s/%s - %.1f%% certainty\n", i+1, r.Class, r.ID, r.Certainty*100)
		props, err := json.Marshal(r.Properties)
		if err != nil {
			return "", fmt.Errorf("failed to encode result: %w", err)
		}
		sb.Write(props)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func (s *Server) toolGetObject(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Class      string   `json:"class"`
		ID         string   `json:"id"`
		Properties []string `json:"properties"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := errors.Join(requireString("class", args.Class), requireString("id", args.ID)); err != nil {
		return "", err
	}

	obj, err := s.backend.GetObject(ctx, args.Class, args.ID, args.Properties...)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode object: %w", err)
	}
	return string(data), nil
}

func (s *Server) toolAddObject(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Class      string         `json:"class"`
		Properties map[string]any `json:"properties"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("class", args.Class); err != nil {
		return "", err
	}
	if args.Properties == nil {
		return "", errors.New("properties is required")
	}

	id, err := s.backend.AddObject(ctx, args.Class, args.Properties)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %s/%s", args.Class, id), nil
}

func (s *Server) toolDeleteObject(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Class string `json:"class"`
		ID    string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := errors.Join(requireString("class", args.Class), requireString("id", args.ID)); err != nil {
		return "", err
	}

	if err := s.backend.DeleteObject(ctx, args.Class, args.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s/%s", args.Class, args.ID), nil
}

func (s *Server) toolExport(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Class      string   `json:"class"`
		Path       string   `json:"path"`
		Properties []string `json:"properties"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := requireString("class", args.Class); err != nil {
		return "", err
	}

	result, err := s.backend.ExportAll(ctx, args.Class, args.Path, args.Properties...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported %d objects of %s to %s (%d bytes, %s)",
		result.Count, args.Class, result.Path, result.Bytes, result.Checksum), nil
}

func (s *Server) toolListClasses(ctx context.Context, _ json.RawMessage) (string, error) {
	schema, err := s.backend.GetSchema(ctx)
	if err != nil {
		return "", err
	}
	if len(schema.Classes) == 0 {
		return "No classes defined.", nil
	}

	var sb strings.Builder
	for _, c := range schema.Classes {
		sb.WriteString(c.Class)
		if c.Description != "" {
			sb.WriteString(" - " + c.Description)
		}
		sb.WriteString("\n")
		for _, p := range c.Properties {
			fmt.Fprintf(&sb, "  %s: %s\n", p.Name, strings.Join(p.DataType, ", "))
		}
	}
	return sb.String(), nil
}
