package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/weaviate/weaviatetest"
)

const testSchema = `classes:
  - class: Article
    description: News articles
    properties:
      - name: title
        dataType: [text]
      - name: body
        dataType: [text]
      - name: views
        dataType: [int]
`

// resetFlags restores every flag to its default, since commands are
// package-level and keep state between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolate runs the test in an empty working and home directory so no
// config file or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	viper.Reset()
	require.NoError(t, viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("url")))

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// setupArticles starts a server, creates the Article class through the CLI
// and returns the server.
func setupArticles(t *testing.T) *weaviatetest.Server {
	t.Helper()
	dir := isolate(t)
	srv := weaviatetest.NewServer(t)

	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))

	out, err := execute(t, "", "schema", "create", path, "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.Contains(t, out, "Article")
	assert.Contains(t, out, "(3 properties)")
	return srv
}

func addArticle(t *testing.T, srv *weaviatetest.Server, props string) string {
	t.Helper()
	out, err := execute(t, "", "object", "add", "Article", props, "--url", srv.URL)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestVersion(t *testing.T) {
	isolate(t)
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aitracker 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestSchemaCommands(t *testing.T) {
	srv := setupArticles(t)
	assert.Equal(t, []string{"Article"}, srv.Classes())

	t.Run("show json", func(t *testing.T) {
		out, err := execute(t, "", "schema", "show", "--json", "--url", srv.URL)
		require.NoError(t, err)

		var schema tracker.Schema
		require.NoError(t, json.Unmarshal([]byte(out), &schema))
		require.Len(t, schema.Classes, 1)
		assert.Equal(t, "Article", schema.Classes[0].Class)
		assert.Len(t, schema.Classes[0].Properties, 3)
	})

	t.Run("show one class as markdown", func(t *testing.T) {
		out, err := execute(t, "", "schema", "show", "Article", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "## Article")
		assert.Contains(t, out, "| views | int |")
	})

	t.Run("show unknown class", func(t *testing.T) {
		_, err := execute(t, "", "schema", "show", "Missing", "--url", srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, tracker.ErrNotFound)
	})

	t.Run("create again is rejected", func(t *testing.T) {
		_, err := execute(t, "", "schema", "create", "schema.yaml", "--url", srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, tracker.ErrSchema)
	})

	t.Run("delete-all needs confirmation", func(t *testing.T) {
		_, err := execute(t, "", "schema", "delete-all", "--url", srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--yes")
		assert.Equal(t, []string{"Article"}, srv.Classes())
	})

	t.Run("delete-all", func(t *testing.T) {
		out, err := execute(t, "", "schema", "delete-all", "--yes", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "1 classes")
		assert.Empty(t, srv.Classes())
	})
}

func TestObjectCommands(t *testing.T) {
	srv := setupArticles(t)

	id := addArticle(t, srv, `{"title": "Hello", "views": 3}`)
	require.Len(t, id, 36)
	require.Len(t, srv.Objects("Article"), 1)

	t.Run("get json with projection", func(t *testing.T) {
		out, err := execute(t, "", "object", "get", "Article", id, "--props", "title", "--json", "--url", srv.URL)
		require.NoError(t, err)

		var obj tracker.DataObject
		require.NoError(t, json.Unmarshal([]byte(out), &obj))
		assert.Equal(t, id, obj.ID)
		assert.Equal(t, map[string]any{"title": "Hello"}, obj.Properties)
	})

	t.Run("get plain", func(t *testing.T) {
		out, err := execute(t, "", "object", "get", "Article", id, "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, id)
		assert.Contains(t, out, "title:")
		assert.Contains(t, out, "Hello")
	})

	t.Run("update merges from stdin", func(t *testing.T) {
		out, err := execute(t, `{"views": 4}`, "object", "update", "Article", id, "-", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Updated")

		objects := srv.Objects("Article")
		require.Len(t, objects, 1)
		assert.Equal(t, "Hello", objects[0].Properties["title"])
		assert.EqualValues(t, 4, objects[0].Properties["views"])
	})

	t.Run("replace from file", func(t *testing.T) {
		require.NoError(t, os.WriteFile("props.json", []byte(`{"title": "Replaced"}`), 0o644))

		out, err := execute(t, "", "object", "update", "Article", id, "@props.json", "--replace", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Replaced")

		objects := srv.Objects("Article")
		require.Len(t, objects, 1)
		assert.Equal(t, map[string]any{"title": "Replaced"}, objects[0].Properties)
	})

	t.Run("invalid properties", func(t *testing.T) {
		_, err := execute(t, "", "object", "add", "Article", `["not", "an", "object"]`, "--url", srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JSON object")
	})

	t.Run("unknown property", func(t *testing.T) {
		_, err := execute(t, "", "object", "add", "Article", `{"colour": "red"}`, "--url", srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, tracker.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		out, err := execute(t, "", "object", "delete", "Article", id, "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted")
		assert.Empty(t, srv.Objects("Article"))

		_, err = execute(t, "", "object", "get", "Article", id, "--url", srv.URL)
		assert.ErrorIs(t, err, tracker.ErrNotFound)
	})
}

func TestSearchCommand(t *testing.T) {
	srv := setupArticles(t)
	addArticle(t, srv, `{"title": "Summer fashion trends", "body": "what to wear this summer"}`)
	addArticle(t, srv, `{"title": "Stock market update", "body": "finance news"}`)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "", "search", "Article", "finance", "market", "--props", "title", "--json", "--url", srv.URL)
		require.NoError(t, err)

		var results []tracker.DataObject
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 1)
		assert.Equal(t, map[string]any{"title": "Stock market update"}, results[0].Properties)
		assert.GreaterOrEqual(t, results[0].Certainty, 0.6)
	})

	t.Run("plain", func(t *testing.T) {
		out, err := execute(t, "", "search", "Article", "summer fashion", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Found 1 results")
		assert.Contains(t, out, "Summer fashion trends")
	})

	t.Run("no results", func(t *testing.T) {
		out, err := execute(t, "", "search", "Article", "travel", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "No results found.")
	})

	t.Run("invalid certainty", func(t *testing.T) {
		_, err := execute(t, "", "search", "Article", "fashion", "--certainty", "1.5", "--url", srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, tracker.ErrQuery)
	})

	t.Run("needs a concept", func(t *testing.T) {
		_, err := execute(t, "", "search", "Article", "--url", srv.URL)
		require.Error(t, err)
	})
}

func TestExportCommand(t *testing.T) {
	srv := setupArticles(t)
	addArticle(t, srv, `{"title": "One"}`)
	addArticle(t, srv, `{"title": "Two"}`)

	t.Run("default path", func(t *testing.T) {
		out, err := execute(t, "", "export", "Article", "--url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Exported")
		assert.Contains(t, out, "2 objects to output.json")

		data, err := os.ReadFile("output.json")
		require.NoError(t, err)
		var objects []tracker.DataObject
		require.NoError(t, json.Unmarshal(data, &objects))
		assert.Len(t, objects, 2)
	})

	t.Run("explicit path", func(t *testing.T) {
		_, err := execute(t, "", "export", "Article", "-o", "articles.json", "--props", "title", "--url", srv.URL)
		require.NoError(t, err)

		data, err := os.ReadFile("articles.json")
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  {")
	})
}

func TestStatusCommand(t *testing.T) {
	srv := setupArticles(t)

	out, err := execute(t, "", "status", "--json", "--url", srv.URL)
	require.NoError(t, err)

	var status tracker.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Ready)
	assert.Equal(t, "1.24.0", status.Version)
	assert.Equal(t, []string{"Article"}, status.Classes)

	out, err = execute(t, "", "status", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL)
	assert.Contains(t, out, "1.24.0")
}

func TestConfigCommand(t *testing.T) {
	isolate(t)
	t.Setenv("AITRACKER_SERVER_PASSWORD", "hunter2")

	out, err := execute(t, "", "config", "--url", "http://db.internal:8080")
	require.NoError(t, err)
	assert.Contains(t, out, "URL: http://db.internal:8080")
	assert.Contains(t, out, "Certainty: 0.60")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")

	out, err = execute(t, "", "config", "--path")
	require.NoError(t, err)
	assert.Contains(t, out, ".aitrackerrc.yaml")
	assert.Contains(t, out, "(none, using defaults)")
}

func TestMCPCommand(t *testing.T) {
	srv := setupArticles(t)

	requests := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"tracker_list_classes","arguments":{}}}`,
	}, "\n")

	out, err := execute(t, requests, "mcp", "--url", srv.URL)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"aitracker"`)
	assert.Contains(t, lines[1], "Article")
}

func TestInstallCommand(t *testing.T) {
	home := isolate(t)

	out, err := execute(t, "", "install", "claude-code", "--url", "http://db.internal:8080")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed")

	data, err := os.ReadFile(filepath.Join(home, ".claude.json"))
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	entry := config["mcpServers"].(map[string]any)["aitracker"].(map[string]any)
	assert.Equal(t, []any{"mcp", "--url", "http://db.internal:8080"}, entry["args"])

	out, err = execute(t, "", "uninstall", "claude-code")
	require.NoError(t, err)
	assert.Contains(t, out, "Uninstalled")

	out, err = execute(t, "", "uninstall", "claude-code")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to uninstall")

	_, err = execute(t, "", "install", "emacs")
	require.Error(t, err)
}
