package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchemaFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchemaFileYAML(t *testing.T) {
	path := writeSchemaFile(t, "schema.yaml", `
classes:
  - class: Article
    description: News articles
    vectorizer: text2vec-openai
    moduleConfig:
      text2vec-openai:
        model: ada
    properties:
      - name: title
        dataType: [text]
        tokenization: word
      - name: views
        dataType: [int]
        indexFilterable: true
  - class: Person
    properties:
      - name: name
        dataType: [text]
`)

	schema, err := LoadSchemaFile(path)
	require.NoError(t, err)
	require.Len(t, schema.Classes, 2)

	article := schema.Classes[0]
	assert.Equal(t, "Article", article.Class)
	assert.Equal(t, "News articles", article.Description)
	assert.Equal(t, "text2vec-openai", article.Vectorizer)
	assert.Contains(t, article.ModuleConfig, "text2vec-openai")
	require.Len(t, article.Properties, 2)
	assert.Equal(t, []string{"text"}, article.Properties[0].DataType)
	assert.Equal(t, "word", article.Properties[0].Tokenization)
	require.NotNil(t, article.Properties[1].IndexFilterable)
	assert.True(t, *article.Properties[1].IndexFilterable)
	assert.Nil(t, article.Properties[1].IndexSearchable)

	assert.Equal(t, "Person", schema.Classes[1].Class)
}

func TestLoadSchemaFileSingleJSONClass(t *testing.T) {
	path := writeSchemaFile(t, "note.json", `{
  "class": "Note",
  "properties": [{"name": "body", "dataType": ["text"]}]
}`)

	schema, err := LoadSchemaFile(path)
	require.NoError(t, err)
	require.Len(t, schema.Classes, 1)
	assert.Equal(t, "Note", schema.Classes[0].Class)
	assert.Equal(t, "body", schema.Classes[0].Properties[0].Name)
}

func TestLoadSchemaFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSchemaFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrIO)
	})

	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: "classes: [unterminated"},
		{name: "empty", content: "# nothing here\n"},
		{name: "both forms", content: "class: A\nclasses:\n  - class: B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchemaFile(writeSchemaFile(t, "schema.yaml", tt.content))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestLoadedSchemaCanBeCreated(t *testing.T) {
	ctx := context.Background()
	tr, srv := newTestTracker(t)

	schema, err := LoadSchemaFile(writeSchemaFile(t, "schema.yaml", `
class: Article
properties:
  - name: title
    dataType: [text]
`))
	require.NoError(t, err)
	require.NoError(t, tr.CreateSchema(ctx, schema))
	assert.Equal(t, []string{"Article"}, srv.Classes())

	_, err = tr.AddObject(ctx, "Article", map[string]any{"title": "hi"})
	require.NoError(t, err)
}
