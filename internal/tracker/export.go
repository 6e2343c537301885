package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

// ExportResult describes a finished export.
type ExportResult struct {
	Path     string `json:"path"`
	Count    int    `json:"count"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"checksum"` // xxh64 of the written file
}

// ExportAll writes every object of class to path as a JSON array indented
// with two spaces, replacing any existing file. When properties are named,
// only those are written. An empty class produces "[]".
func (t *Tracker) ExportAll(ctx context.Context, class, path string, properties ...string) (*ExportResult, error) {
	if path == "" {
		path = DefaultExportPath
	}
	op := "export " + class

	objects, err := t.fetchAll(ctx, class, properties)
	if err != nil {
		return nil, opError(op, ErrConnection, err)
	}

	data, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return nil, opError(op, ErrIO, fmt.Errorf("failed to encode objects: %w", err))
	}

	if err := writeFile(path, data); err != nil {
		return nil, opError(op, ErrIO, err)
	}

	log.Debug("Exported class", "class", class, "path", path, "objects", len(objects))

	return &ExportResult{
		Path:     path,
		Count:    len(objects),
		Bytes:    len(data),
		Checksum: fmt.Sprintf("xxh64:%016x", xxhash.Sum64(data)),
	}, nil
}

// fetchAll pages through class with the ID cursor.
func (t *Tracker) fetchAll(ctx context.Context, class string, properties []string) ([]DataObject, error) {
	objects := make([]DataObject, 0)
	after := ""
	for {
		page, err := t.client.ListObjects(ctx, weaviate.ListOptions{
			Class: class,
			Limit: t.pageSize,
			After: after,
		})
		if err != nil {
			return nil, err
		}

		for i := range page.Objects {
			obj := fromWire(&page.Objects[i])
			obj.Properties = project(obj.Properties, properties)
			objects = append(objects, *obj)
		}

		log.Debug("Fetched page", "class", class, "objects", len(page.Objects), "total", len(objects))

		if len(page.Objects) < t.pageSize {
			return objects, nil
		}
		after = page.Objects[len(page.Objects)-1].ID
	}
}

// writeFile creates or truncates path and writes data. The file is closed on
// every path and a failed close is reported.
func writeFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.Write(data)
	return err
}
