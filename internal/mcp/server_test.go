package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blevlabs/TuningTracker/internal/mcp"
	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/weaviate/weaviatetest"
)

type response struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *mcp.Error      `json:"error"`
}

func newBackend(t *testing.T) *tracker.Tracker {
	t.Helper()
	srv := weaviatetest.NewServer(t)
	tr, err := tracker.New(context.Background(), tracker.Options{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, tr.CreateSchema(context.Background(), tracker.Schema{Classes: []tracker.Class{{
		Class: "Article",
		Properties: []tracker.Property{
			{Name: "title", DataType: []string{"text"}},
		},
	}}}))
	return tr
}

// session feeds one request per line to a server and returns the decoded responses.
func session(t *testing.T, backend mcp.Backend, requests ...string) []response {
	t.Helper()
	var out bytes.Buffer
	srv := mcp.NewServer(backend, mcp.WithIO(strings.NewReader(strings.Join(requests, "\n")+"\n"), &out), mcp.WithVersion("test"))
	require.NoError(t, srv.Run(context.Background()))

	var responses []response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var r response
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		responses = append(responses, r)
	}
	return responses
}

func call(id int, name string, args any) string {
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	req, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": "tools/call", "params": json.RawMessage(params)})
	return string(req)
}

func toolResult(t *testing.T, r response) mcp.CallToolResult {
	t.Helper()
	require.Nil(t, r.Error)
	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(r.Result, &result))
	require.Len(t, result.Content, 1)
	return result
}

func TestInitializeAndListTools(t *testing.T) {
	responses := session(t, newBackend(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, responses, 3, "notifications get no response")

	var initResult mcp.InitializeResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, mcp.MCPVersion, initResult.ProtocolVersion)
	assert.Equal(t, "aitracker", initResult.ServerInfo.Name)
	assert.Equal(t, "test", initResult.ServerInfo.Version)
	assert.NotNil(t, initResult.Capabilities.Tools)

	var list mcp.ListToolsResult
	require.NoError(t, json.Unmarshal(responses[1].Result, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type)
		if tool.Name == "tracker_search" {
			assert.Equal(t, "integer", tool.InputSchema.Properties["limit"].Type)
			assert.Equal(t, "number", tool.InputSchema.Properties["certainty"].Type)
		}
	}
	assert.Equal(t, []string{
		"tracker_search",
		"tracker_get_object",
		"tracker_add_object",
		"tracker_delete_object",
		"tracker_export",
		"tracker_list_classes",
	}, names)

	assert.EqualValues(t, 3, responses[2].ID)
	assert.Nil(t, responses[2].Error)
}

func TestProtocolErrors(t *testing.T) {
	responses := session(t, newBackend(t),
		`not json`,
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":"nope"}`,
	)
	require.Len(t, responses, 4)

	assert.Nil(t, responses[0].ID)
	assert.Equal(t, mcp.ErrorCodeParse, responses[0].Error.Code)
	assert.Equal(t, mcp.ErrorCodeInvalidRequest, responses[1].Error.Code)
	assert.Equal(t, mcp.ErrorCodeMethodNotFound, responses[2].Error.Code)
	assert.Equal(t, mcp.ErrorCodeInvalidParams, responses[3].Error.Code)
}

func TestObjectTools(t *testing.T) {
	backend := newBackend(t)

	responses := session(t, backend,
		call(1, "tracker_add_object", map[string]any{"class": "Article", "properties": map[string]any{"title": "Summer fashion"}}),
	)
	added := toolResult(t, responses[0])
	require.False(t, added.IsError, added.Content[0].Text)
	ref := strings.TrimPrefix(added.Content[0].Text, "Created ")
	class, id, ok := strings.Cut(ref, "/")
	require.True(t, ok)
	assert.Equal(t, "Article", class)

	responses = session(t, backend,
		call(2, "tracker_get_object", map[string]any{"class": "Article", "id": id}),
		call(3, "tracker_search", map[string]any{"class": "Article", "concepts": []string{"fashion"}}),
		call(4, "tracker_delete_object", map[string]any{"class": "Article", "id": id}),
		call(5, "tracker_get_object", map[string]any{"class": "Article", "id": id}),
	)
	require.Len(t, responses, 4)

	got := toolResult(t, responses[0])
	require.False(t, got.IsError)
	var obj tracker.DataObject
	require.NoError(t, json.Unmarshal([]byte(got.Content[0].Text), &obj))
	assert.Equal(t, id, obj.ID)
	assert.Equal(t, "Summer fashion", obj.Properties["title"])

	found := toolResult(t, responses[1])
	require.False(t, found.IsError)
	assert.Contains(t, found.Content[0].Text, "Found 1 results")
	assert.Contains(t, found.Content[0].Text, id)

	deleted := toolResult(t, responses[2])
	assert.False(t, deleted.IsError)

	missing := toolResult(t, responses[3])
	assert.True(t, missing.IsError)
	assert.Contains(t, missing.Content[0].Text, "not found")
}

func TestToolArgumentErrors(t *testing.T) {
	responses := session(t, newBackend(t),
		call(1, "tracker_search", map[string]any{"class": "Article"}),
		call(2, "tracker_get_object", map[string]any{"class": "Article"}),
		call(3, "tracker_add_object", map[string]any{"class": "Article"}),
		call(4, "tracker_search", map[string]any{"class": "Article", "concepts": "not-a-list"}),
		call(5, "tracker_nope", map[string]any{}),
	)
	require.Len(t, responses, 5)

	for _, r := range responses {
		result := toolResult(t, r)
		assert.True(t, result.IsError, result.Content[0].Text)
	}
	assert.Contains(t, toolResult(t, responses[0]).Content[0].Text, "query error")
	assert.Contains(t, toolResult(t, responses[1]).Content[0].Text, "id is required")
	assert.Contains(t, toolResult(t, responses[4]).Content[0].Text, "Unknown tool")
}

func TestExportTool(t *testing.T) {
	backend := newBackend(t)
	_, err := backend.AddObject(context.Background(), "Article", map[string]any{"title": "a"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "articles.json")
	responses := session(t, backend,
		call(1, "tracker_export", map[string]any{"class": "Article", "path": path}),
		call(2, "tracker_list_classes", nil),
	)

	exported := toolResult(t, responses[0])
	require.False(t, exported.IsError, exported.Content[0].Text)
	assert.Contains(t, exported.Content[0].Text, "Exported 1 objects")
	assert.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "a"`)

	classes := toolResult(t, responses[1])
	assert.Contains(t, classes.Content[0].Text, "Article")
	assert.Contains(t, classes.Content[0].Text, "title: text")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	srv := mcp.NewServer(newBackend(t), mcp.WithIO(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out))
	err := srv.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
