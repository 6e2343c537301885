package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAllEmptyClass(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.CreateSchema(ctx, articleSchema()))

	path := filepath.Join(t.TempDir(), "out.json")
	result, err := tr.ExportAll(ctx, "Article", path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExportAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, func(o *Options) { o.PageSize = 2 })
	require.NoError(t, tr.CreateSchema(ctx, articleSchema()))

	want := make(map[string]map[string]any)
	for i := range 5 {
		props := map[string]any{"title": fmt.Sprintf("Article %d", i), "body": "text"}
		id, err := tr.AddObject(ctx, "Article", props)
		require.NoError(t, err)
		want[id] = props
	}

	path := filepath.Join(t.TempDir(), "out.json")
	result, err := tr.ExportAll(ctx, "Article", path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)
	assert.Equal(t, 5, result.Count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(data), result.Bytes)
	assert.Equal(t, fmt.Sprintf("xxh64:%016x", xxhash.Sum64(data)), result.Checksum)
	assert.Contains(t, string(data), "\n  {\n    \"id\": ", "two-space indentation")

	var exported []DataObject
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 5)

	seen := make(map[string]bool)
	for _, obj := range exported {
		assert.Equal(t, "Article", obj.Class)
		assert.Equal(t, want[obj.ID], obj.Properties)
		assert.Zero(t, obj.Certainty)
		seen[obj.ID] = true
	}
	assert.Len(t, seen, 5, "every object exported exactly once")
}

func TestExportAllOverwritesAndProjects(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	seedArticles(t, tr)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stale": true, "padding": "................................"}`), 0o644))

	_, err := tr.ExportAll(ctx, "Article", path, "title")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	var exported []DataObject
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 3)
	for _, obj := range exported {
		assert.Len(t, obj.Properties, 1)
		assert.Contains(t, obj.Properties, "title")
	}
}

func TestExportAllDefaultPath(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.CreateSchema(ctx, articleSchema()))

	t.Chdir(t.TempDir())

	result, err := tr.ExportAll(ctx, "Article", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultExportPath, result.Path)
	assert.FileExists(t, DefaultExportPath)
}

func TestExportAllErrors(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)
	seedArticles(t, tr)

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.json")
		_, err := tr.ExportAll(ctx, "Article", path)
		assert.ErrorIs(t, err, ErrIO)
		assert.NoFileExists(t, path)
	})

	t.Run("unknown class", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		_, err := tr.ExportAll(ctx, "Missing", path)
		assert.ErrorIs(t, err, ErrConnection)
		assert.NoFileExists(t, path)
	})
}
