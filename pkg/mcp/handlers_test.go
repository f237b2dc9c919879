package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/indexer"
	"github.com/gnana997/codeconnect/pkg/mcplog"
	"github.com/gnana997/codeconnect/pkg/project"
	"github.com/gnana997/codeconnect/pkg/util"
)

// --- helpers ---

type stubLinker struct{}

func (stubLinker) RemoteFileURL(path string) string {
	return "https://github.com/acme/ui/blob/main/" + filepath.Base(path)
}

func (stubLinker) StorybookURL(path, base string) string { return base }

type fakeFigma struct {
	nodes map[string]*figma.Node
	calls int
}

func (f *fakeFigma) Nodes(_ context.Context, _ string, ids []string) (map[string]*figma.Node, error) {
	f.calls++
	out := map[string]*figma.Node{}
	for _, id := range ids {
		out[id] = f.nodes[id]
	}
	return out, nil
}

var projectFiles = map[string]string{
	"package.json": `{"dependencies": {"react": "18"}}`,
	"src/Button.tsx": `interface BaseProps { id?: string }
export interface ButtonProps extends BaseProps { label: string; disabled?: boolean }
export const Button = (props: ButtonProps) => <button>{props.label}</button>
`,
	"src/Button.figma.tsx": `import { Button } from './Button'
import figma from '@figma/code-connect'

figma.connect(Button, "https://www.figma.com/design/abc/Kit?node-id=1-2", {
  props: { label: figma.string('Label') },
  example: ({ label }) => <Button label={label} />,
})
`,
	"src/Card.figma.tsx": `import figma from '@figma/code-connect'

figma.connect("https://www.figma.com/design/abc/Kit?node-id=3-4", {
  example: () => <div>card</div>,
})
`,
}

func testServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	dir := t.TempDir()
	for name, content := range projectFiles {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logger := util.NewDiscardLogger()
	p, err := project.Load(dir, "", logger)
	require.NoError(t, err)
	runner, err := project.NewRunner(p, project.Options{Linker: stubLinker{}}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { runner.Close() })

	index := indexer.NewDocumentIndex(indexer.DefaultDocumentIndexConfig(), logger)
	t.Cleanup(index.Close)
	scanner, err := indexer.NewWorkspaceScanner(runner, index, logger)
	require.NoError(t, err)
	_, err = scanner.ScanWorkspace(context.Background(), nil)
	require.NoError(t, err)

	cfg.Logger = logger
	return NewServer(scanner, cfg)
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	tool := s.MCPServer().GetTool(req.Params.Name)
	require.NotNil(t, tool, "unknown tool: %s", req.Params.Name)

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), &out))
	return out
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := testServer(t, Config{})
	tools := s.MCPServer().ListTools()
	assert.Len(t, tools, len(ToolNames()))
	for _, name := range ToolNames() {
		assert.Contains(t, tools, name)
	}
}

// --- parse_file ---

func TestHandleParseFile(t *testing.T) {
	s := testServer(t, Config{})
	result := callTool(t, s, makeRequest("parse_file", map[string]any{"path": "src/Button.figma.tsx"}))
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	assert.Equal(t, "src/Button.figma.tsx", out["file"])
	assert.Equal(t, false, out["changed"]) // served from the index
	docs := out["docs"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(t, "Button", doc["component"])
	assert.Equal(t, "https://github.com/acme/ui/blob/main/Button.tsx", doc["source"])
}

func TestHandleParseFile_Errors(t *testing.T) {
	s := testServer(t, Config{})

	result := callTool(t, s, makeRequest("parse_file", nil))
	assert.True(t, result.IsError)

	result = callTool(t, s, makeRequest("parse_file", map[string]any{"path": "../outside.tsx"}))
	assert.True(t, result.IsError)
	assert.Contains(t, mcplog.ResultText(result), "outside the project")

	result = callTool(t, s, makeRequest("parse_file", map[string]any{"path": "src/Missing.tsx"}))
	assert.True(t, result.IsError)
}

// --- list_documents ---

func TestHandleListDocuments(t *testing.T) {
	s := testServer(t, Config{})

	out := resultJSON(t, callTool(t, s, makeRequest("list_documents", nil)))
	assert.Equal(t, float64(2), out["total"])
	docs := out["docs"].([]any)
	assert.Equal(t, "src/Button.figma.tsx", docs[0].(map[string]any)["file"])
	assert.Equal(t, "src/Card.figma.tsx", docs[1].(map[string]any)["file"])

	out = resultJSON(t, callTool(t, s, makeRequest("list_documents", map[string]any{"component": "Button"})))
	assert.Equal(t, float64(1), out["total"])

	out = resultJSON(t, callTool(t, s, makeRequest("list_documents", map[string]any{"label": "storybook"})))
	assert.Equal(t, float64(0), out["total"])
	assert.Empty(t, out["docs"])
}

// --- get_document ---

func TestHandleGetDocument(t *testing.T) {
	s := testServer(t, Config{})

	result := callTool(t, s, makeRequest("get_document", map[string]any{"figma_node": "https://figma.com/file/abc?node-id=1:2"}))
	assert.False(t, result.IsError)
	docs := resultJSON(t, result)["docs"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Contains(t, doc["template"], "figma.currentLayer.__properties__.string('Label')")

	result = callTool(t, s, makeRequest("get_document", map[string]any{"figma_node": "https://figma.com/file/abc?node-id=9-9"}))
	assert.True(t, result.IsError)
}

// --- component_signature ---

func TestHandleComponentSignature(t *testing.T) {
	s := testServer(t, Config{})

	result := callTool(t, s, makeRequest("component_signature", map[string]any{
		"path":      "src/Button.tsx",
		"component": "Button",
	}))
	require.False(t, result.IsError, mcplog.ResultText(result))

	out := resultJSON(t, result)
	props := out["props"].([]any)
	require.Len(t, props, 3)
	assert.Equal(t, map[string]any{"name": "id", "type": "?string"}, props[0])
	assert.Equal(t, map[string]any{"name": "label", "type": "string"}, props[1])
	assert.Equal(t, map[string]any{"name": "disabled", "type": "?boolean"}, props[2])

	result = callTool(t, s, makeRequest("component_signature", map[string]any{
		"path":      "src/Button.tsx",
		"component": "Missing",
	}))
	assert.True(t, result.IsError)
}

// --- validate_document ---

func TestHandleValidateDocument(t *testing.T) {
	client := &fakeFigma{nodes: map[string]*figma.Node{
		"1:2": {Document: &figma.Layer{
			ID:   "1:2",
			Name: "Button",
			Type: figma.TypeComponent,
			ComponentPropertyDefinitions: map[string]figma.PropertyDefinition{
				"Label#12:0": {Type: figma.PropertyText, DefaultValue: "Click"},
			},
		}},
		"3:4": {Document: &figma.Layer{ID: "3:4", Name: "Card", Type: "FRAME"}},
	}}
	s := testServer(t, Config{Figma: client})

	out := resultJSON(t, callTool(t, s, makeRequest("validate_document", map[string]any{"figma_node": "https://www.figma.com/design/abc/Kit?node-id=1-2"})))
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, float64(1), out["checked"])

	out = resultJSON(t, callTool(t, s, makeRequest("validate_document", map[string]any{"figma_node": "https://www.figma.com/design/abc/Kit?node-id=3-4"})))
	assert.Equal(t, false, out["valid"])
	errs := out["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not a component or component set")
	assert.Equal(t, 2, client.calls)
}

func TestHandleValidateDocument_NoToken(t *testing.T) {
	s := testServer(t, Config{})
	result := callTool(t, s, makeRequest("validate_document", map[string]any{"figma_node": "https://www.figma.com/design/abc/Kit?node-id=1-2"}))
	assert.True(t, result.IsError)
	assert.Contains(t, mcplog.ResultText(result), "FIGMA_ACCESS_TOKEN")
}

// --- index_status ---

func TestHandleIndexStatus(t *testing.T) {
	s := testServer(t, Config{})

	out := resultJSON(t, callTool(t, s, makeRequest("index_status", map[string]any{"rescan": true})))
	assert.Equal(t, "react", out["parser"])
	scan := out["scan"].(map[string]any)
	assert.Equal(t, float64(3), scan["filesDiscovered"])
	assert.Equal(t, float64(3), scan["filesUnchanged"])
	index := out["index"].(map[string]any)
	assert.Equal(t, float64(2), index["TotalDocuments"])
	parsers := out["parsers"].(map[string]any)
	assert.Greater(t, parsers["ParsesCalled"], float64(0))
	assert.Nil(t, out["failedFiles"])
}

// --- call log ---

func TestLoggingMiddleware(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	callLog, err := mcplog.NewLogger(path)
	require.NoError(t, err)
	defer callLog.Close()

	s := testServer(t, Config{CallLog: callLog})
	handler := s.loggingMiddleware()(s.handleListDocuments)
	_, err = handler(context.Background(), makeRequest("list_documents", map[string]any{"component": "Button"}))
	require.NoError(t, err)

	handler = s.loggingMiddleware()(s.handleGetDocument)
	_, err = handler(context.Background(), makeRequest("get_document", map[string]any{"figma_node": "nowhere"}))
	require.NoError(t, err)
	require.NoError(t, callLog.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []mcplog.LogEntry
	lines := bufio.NewScanner(f)
	for lines.Scan() {
		var e mcplog.LogEntry
		require.NoError(t, json.Unmarshal(lines.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "list_documents", entries[0].Tool)
	assert.Equal(t, "Button", entries[0].Params["component"])
	assert.Equal(t, 1, entries[0].Documents)
	assert.Nil(t, entries[0].Error)
	assert.Positive(t, entries[0].ResponseBytes)

	assert.Equal(t, "get_document", entries[1].Tool)
	require.NotNil(t, entries[1].Error)
	assert.Contains(t, *entries[1].Error, "no Code Connect document")
}
