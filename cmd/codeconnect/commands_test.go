package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/figma"
)

const (
	buttonSource = `interface BaseProps { id?: string }
export interface ButtonProps extends BaseProps { label: string; disabled?: boolean }
export const Button = (props: ButtonProps) => <button>{props.label}</button>
`
	buttonConnect = `import { Button } from './Button'
import figma from '@figma/code-connect'

figma.connect(Button, "https://www.figma.com/design/abc/Kit?node-id=1-2", {
  props: { label: figma.string('Label') },
  example: ({ label }) => <Button label={label} />,
})
`
	brokenConnect = `import figma from '@figma/code-connect'

figma.connect()
`
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func buttonProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"package.json":         `{"dependencies": {"react": "18"}}`,
		"src/Button.tsx":       buttonSource,
		"src/Button.figma.tsx": buttonConnect,
	})
}

// runCLI executes the root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestParseCommand(t *testing.T) {
	dir := buttonProject(t)

	out, err := runCLI(t, "parse", dir)
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "https://www.figma.com/design/abc/Kit?node-id=1-2", docs[0]["figmaNode"])
	assert.Equal(t, "Button", docs[0]["component"])
	assert.Equal(t, connect.LabelReact, docs[0]["label"])
	assert.Contains(t, docs[0]["template"], "figma.currentLayer.__properties__.string('Label')")
	// templates are not HTML-escaped
	assert.Contains(t, out, "<Button")
}

func TestParseCommand_OutFile(t *testing.T) {
	dir := buttonProject(t)
	outFile := filepath.Join(t.TempDir(), "docs.json")

	out, err := runCLI(t, "parse", dir, "--out", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(data, &docs))
	assert.Len(t, docs, 1)
}

func TestParseCommand_Failures(t *testing.T) {
	files := map[string]string{
		"package.json":         `{"dependencies": {"react": "18"}}`,
		"src/Button.tsx":       buttonSource,
		"src/Button.figma.tsx": buttonConnect,
		"src/Broken.figma.tsx": brokenConnect,
	}

	t.Run("abort", func(t *testing.T) {
		out, err := runCLI(t, "parse", writeProject(t, files))
		require.Error(t, err)
		assert.Empty(t, out)
	})

	t.Run("continue on error", func(t *testing.T) {
		out, err := runCLI(t, "parse", writeProject(t, files), "--continue-on-error")
		assert.ErrorIs(t, err, errParseFailed)

		var docs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &docs))
		assert.Len(t, docs, 1)
	})

	t.Run("messages", func(t *testing.T) {
		out, err := runCLI(t, "parse", writeProject(t, files), "--messages")
		require.NoError(t, err)

		var resp struct {
			Docs     []map[string]any `json:"docs"`
			Messages []struct {
				Level   string `json:"level"`
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Len(t, resp.Docs, 1)

		var errs int
		for _, m := range resp.Messages {
			if m.Level == "ERROR" {
				errs++
				assert.Equal(t, "ParserError", m.Type)
			}
		}
		assert.Equal(t, 1, errs)
	})
}

func TestParseCommand_NoProject(t *testing.T) {
	_, err := runCLI(t, "parse", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPrintCommand(t *testing.T) {
	dir := buttonProject(t)

	out, err := runCLI(t, "print", filepath.Join(dir, "src", "Button.figma.tsx"), "--dir", dir, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Button")
	assert.Contains(t, out, "[React]")
	assert.Contains(t, out, "https://www.figma.com/design/abc/Kit?node-id=1-2")
	assert.Contains(t, out, "label")
	assert.Contains(t, out, "<Button")
	assert.Contains(t, out, "import { Button } from './Button'")
}

func TestPrintCommand_NoDocuments(t *testing.T) {
	dir := buttonProject(t)

	out, err := runCLI(t, "print", filepath.Join(dir, "src", "Button.tsx"), "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No Code Connect documents")

	_, err = runCLI(t, "print", filepath.Join(dir, "src", "Missing.tsx"), "--dir", dir)
	assert.ErrorContains(t, err, "cannot read")
}

func TestSignatureCommand(t *testing.T) {
	dir := buttonProject(t)
	file := filepath.Join(dir, "src", "Button.tsx")

	out, err := runCLI(t, "signature", file, "Button", "--dir", dir, "--json")
	require.NoError(t, err)

	var props []signatureProp
	require.NoError(t, json.Unmarshal([]byte(out), &props))
	assert.Equal(t, []signatureProp{
		{Name: "id", Type: "string", Optional: true},
		{Name: "label", Type: "string"},
		{Name: "disabled", Type: "boolean", Optional: true},
	}, props)

	out, err = runCLI(t, "signature", file, "Button", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "id?:")
	assert.Contains(t, out, "label:")

	_, err = runCLI(t, "signature", file, "Missing", "--dir", dir)
	assert.Error(t, err)
}

func TestSchemaCommand(t *testing.T) {
	out, err := runCLI(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Contains(t, out, `"docs"`)
	assert.Contains(t, out, `"messages"`)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "codeconnect "+connect.Version+"\n", out)
}

func TestRootCommand_SetsDefaultLogger(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	_, err := runCLI(t, "--log-level", "debug", "version")
	require.NoError(t, err)
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	_, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
}

func TestValidateCommand(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Figma-Token")
		assert.Equal(t, "/files/abc/nodes", r.URL.Path)
		assert.Equal(t, "1:2", r.URL.Query().Get("ids"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nodes": map[string]*figma.Node{
				"1:2": {Document: &figma.Layer{
					ID:   "1:2",
					Name: "Button",
					Type: figma.TypeComponent,
					ComponentPropertyDefinitions: map[string]figma.PropertyDefinition{
						"Label#12:0": {Type: figma.PropertyText, DefaultValue: "Click"},
					},
				}},
			},
		})
	}))
	defer srv.Close()

	dir := buttonProject(t)
	out, err := runCLI(t, "validate", dir, "--token", "secret", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Contains(t, out, "1 document(s) valid")
}

func TestValidateCommand_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nodes": map[string]*figma.Node{
				"1:2": {Document: &figma.Layer{ID: "1:2", Name: "Button", Type: figma.TypeComponent}},
			},
		})
	}))
	defer srv.Close()

	dir := buttonProject(t)
	out, err := runCLI(t, "validate", dir, "--token", "secret", "--api-url", srv.URL)
	assert.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "Label")
	assert.Contains(t, out, "1 of 1 document(s) failed")
}

func TestValidateCommand_Token(t *testing.T) {
	t.Setenv(tokenEnv, "")
	dir := buttonProject(t)

	_, err := runCLI(t, "validate", dir)
	assert.ErrorContains(t, err, "no Figma access token")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(tokenEnv+"=from-dotenv\n"), 0o644))
	assert.Equal(t, "from-dotenv", figmaToken("", dir))
	assert.Equal(t, "from-flag", figmaToken("from-flag", dir))

	t.Setenv(tokenEnv, "from-env")
	assert.Equal(t, "from-env", figmaToken("", dir))
}

// figmaServer serves the Button node and records Code Connect requests.
type figmaServer struct {
	*httptest.Server
	methods []string
	bodies  []string
}

func newFigmaServer(t *testing.T) *figmaServer {
	t.Helper()
	fs := &figmaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/files/abc/nodes", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nodes": map[string]*figma.Node{
				"1:2": {Document: &figma.Layer{
					ID:   "1:2",
					Name: "Button",
					Type: figma.TypeComponent,
					ComponentPropertyDefinitions: map[string]figma.PropertyDefinition{
						"Label#12:0": {Type: figma.PropertyText, DefaultValue: "Click"},
						"Disabled":   {Type: figma.PropertyBoolean, DefaultValue: false},
					},
				}},
			},
		})
	})
	mux.HandleFunc("/code_connect", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.methods = append(fs.methods, r.Method)
		fs.bodies = append(fs.bodies, string(body))
		_, _ = w.Write([]byte(`{}`))
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func TestPublishCommand(t *testing.T) {
	srv := newFigmaServer(t)
	dir := buttonProject(t)

	out, err := runCLI(t, "publish", dir, "--token", "secret", "--api-url", srv.URL, "--batch-size", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPost}, srv.methods)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.bodies[0]), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Button", docs[0]["component"])
	assert.Equal(t, "https://www.figma.com/design/abc/Kit?node-id=1-2", docs[0]["figmaNode"])

	assert.Contains(t, out, "Successfully uploaded to Figma")
	assert.Contains(t, out, "-> Button https://www.figma.com/design/abc/Kit?node-id=1-2")
}

func TestPublishCommand_DryRun(t *testing.T) {
	srv := newFigmaServer(t)
	dir := buttonProject(t)

	out, err := runCLI(t, "publish", dir, "--token", "secret", "--api-url", srv.URL, "--dry-run", "--skip-validation")
	require.NoError(t, err)
	assert.Empty(t, srv.methods)
	assert.Contains(t, out, "Dry run, would upload to Figma")
}

func TestPublishCommand_ValidationFailure(t *testing.T) {
	srv := newFigmaServer(t)
	dir := writeProject(t, map[string]string{
		"package.json":   `{"dependencies": {"react": "18"}}`,
		"src/Button.tsx": buttonSource,
		"src/Button.figma.tsx": `import { Button } from './Button'
import figma from '@figma/code-connect'

figma.connect(Button, "https://www.figma.com/design/abc/Kit?node-id=1-2", {
  props: { size: figma.enum('Size', { Small: 'sm' }) },
  example: ({ size }) => <Button size={size} />,
})
`,
	})

	out, err := runCLI(t, "publish", dir, "--token", "secret", "--api-url", srv.URL)
	assert.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "Size")
	assert.Empty(t, srv.methods, "nothing is uploaded when validation fails")
}

func TestPublishCommand_ParseErrors(t *testing.T) {
	srv := newFigmaServer(t)
	dir := writeProject(t, map[string]string{
		"package.json":         `{"dependencies": {"react": "18"}}`,
		"src/Broken.figma.tsx": brokenConnect,
	})

	_, err := runCLI(t, "publish", dir, "--token", "secret", "--api-url", srv.URL)
	assert.ErrorIs(t, err, errParseFailed)
	assert.Empty(t, srv.methods)
}

func TestUnpublishCommand(t *testing.T) {
	srv := newFigmaServer(t)
	dir := buttonProject(t)

	out, err := runCLI(t, "unpublish", dir, "--token", "secret", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodDelete}, srv.methods)
	assert.JSONEq(t, `{"nodes_to_delete": [{"figmaNode": "https://www.figma.com/design/abc/Kit?node-id=1-2", "label": "React"}]}`, srv.bodies[0])
	assert.Contains(t, out, "-> https://www.figma.com/design/abc/Kit?node-id=1-2 (React)")
}

func TestUnpublishCommand_Node(t *testing.T) {
	srv := newFigmaServer(t)
	dir := t.TempDir()
	node := "https://www.figma.com/design/abc/Kit?node-id=3-4"

	_, err := runCLI(t, "unpublish", dir, "--token", "secret", "--api-url", srv.URL, "--node", node)
	assert.ErrorContains(t, err, "--label is required")

	_, err = runCLI(t, "unpublish", dir, "--token", "secret", "--api-url", srv.URL, "--node", node, "--label", "Web Components")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes_to_delete": [{"figmaNode": "`+node+`", "label": "Web Components"}]}`, srv.bodies[0])
}

func TestCreateCommand(t *testing.T) {
	srv := newFigmaServer(t)
	dir := buttonProject(t)
	outDir := filepath.Join(dir, "figma")
	url := "https://www.figma.com/design/abc/Kit?node-id=1-2"

	out, err := runCLI(t, "create", url, "--token", "secret", "--api-url", srv.URL,
		"--dir", dir, "--component-file", filepath.Join(dir, "src", "Button.tsx"), "--out-dir", outDir)
	require.NoError(t, err)

	path := filepath.Join(outDir, "Button.figma.tsx")
	assert.Contains(t, out, "Created")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	code := string(data)
	assert.Contains(t, code, "import { Button } from '../src/Button'\n")
	assert.Contains(t, code, `"label": figma.string("Label"),`)
	assert.Contains(t, code, `"disabled": figma.boolean("Disabled"),`)
	assert.NotContains(t, code, "No matching props could be found")
	assert.Contains(t, code, "label={props.label}")
	assert.Contains(t, code, "disabled={props.disabled}")

	out, err = runCLI(t, "create", url, "--token", "secret", "--api-url", srv.URL,
		"--dir", dir, "--component-file", filepath.Join(dir, "src", "Button.tsx"), "--out-dir", outDir)
	assert.ErrorIs(t, err, errCreateFailed)
	assert.Contains(t, out, "already exists, skipping creation")
}

func TestCreateCommand_NoComponentFile(t *testing.T) {
	srv := newFigmaServer(t)
	out := filepath.Join(t.TempDir(), "button.figma.tsx")

	_, err := runCLI(t, "create", "https://www.figma.com/design/abc/Kit?node-id=1-2", "--token", "secret", "--api-url", srv.URL, "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "import { Button } from './Button'\n")
	assert.Contains(t, string(data), `    "disabled": figma.boolean("Disabled"),`)
	assert.Contains(t, string(data), "example: (props) => <Button />,")

	_, err = runCLI(t, "create", "https://www.figma.com/design/abc/Kit?node-id=9-9", "--token", "secret", "--api-url", srv.URL, "--out", out)
	assert.ErrorContains(t, err, "node 9:9 not found")
}
