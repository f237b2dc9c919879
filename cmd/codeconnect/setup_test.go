package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeServers(t *testing.T, data []byte, key string) map[string]any {
	t.Helper()
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	servers, ok := config[key].(map[string]any)
	require.True(t, ok, "missing %q", key)
	return servers
}

// stubDetection replaces PATH lookups and stats for the duration of a test.
func stubDetection(t *testing.T, binaries []string, stat func(string) (os.FileInfo, error)) {
	t.Helper()
	origLookPath, origStat := lookPathFunc, statFunc
	t.Cleanup(func() {
		lookPathFunc = origLookPath
		statFunc = origStat
	})

	lookPathFunc = func(name string) (string, error) {
		for _, b := range binaries {
			if b == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
	if stat == nil {
		stat = func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }
	}
	statFunc = stat
}

// --- JSON merge ---

func TestMergeServerEntry_EmptyFile(t *testing.T) {
	out, err := mergeServerEntry(nil, "mcpServers", []string{"serve"}, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	entry := decodeServers(t, out, "mcpServers")["codeconnect"].(map[string]any)
	assert.Equal(t, "codeconnect", entry["command"])
	assert.Equal(t, []any{"serve"}, entry["args"])
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestMergeServerEntry_ProjectDir(t *testing.T) {
	out, err := mergeServerEntry(nil, "mcpServers", []string{"serve", "/work/ui"}, nil)
	require.NoError(t, err)

	entry := decodeServers(t, out, "mcpServers")["codeconnect"].(map[string]any)
	assert.Equal(t, []any{"serve", "/work/ui"}, entry["args"])
}

func TestMergeServerEntry_ExistingServers(t *testing.T) {
	existing := []byte(`{
  "mcpServers": {
    "other-server": {"command": "other", "args": ["start"]}
  }
}`)
	out, err := mergeServerEntry(existing, "mcpServers", []string{"serve"}, nil)
	require.NoError(t, err)

	servers := decodeServers(t, out, "mcpServers")
	assert.Contains(t, servers, "other-server")
	assert.Contains(t, servers, "codeconnect")
}

func TestMergeServerEntry_AlreadyConfigured(t *testing.T) {
	existing := []byte(`{"mcpServers": {"codeconnect": {"command": "codeconnect", "args": ["serve"]}}}`)
	out, err := mergeServerEntry(existing, "mcpServers", []string{"serve"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestMergeServerEntry_VSCodeFormat(t *testing.T) {
	out, err := mergeServerEntry(nil, "servers", []string{"serve"}, map[string]string{"type": "stdio"})
	require.NoError(t, err)

	entry := decodeServers(t, out, "servers")["codeconnect"].(map[string]any)
	assert.Equal(t, "stdio", entry["type"])
}

func TestMergeServerEntry_InvalidJSON(t *testing.T) {
	_, err := mergeServerEntry([]byte("not json"), "mcpServers", nil, nil)
	assert.ErrorContains(t, err, "invalid JSON")
}

// --- prompts ---

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"no\n", false},
		{"", true}, // EOF
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			assert.Equal(t, tt.want, promptYesNo(r, &bytes.Buffer{}, "Continue?"))
		})
	}
}

func TestPromptScope(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1\n", "project"},
		{"2\n", "user"},
		{"3\n", ""},
		{"\n", "project"},
		{"", "project"},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			assert.Equal(t, tt.want, promptScope(r, &bytes.Buffer{}, "Claude Code"))
		})
	}
}

func TestPrompts_ShareReader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("n\n2\n"))
	w := &bytes.Buffer{}
	assert.False(t, promptYesNo(r, w, "Continue?"))
	assert.Equal(t, "user", promptScope(r, w, "Codex"))
}

// --- detection ---

func TestDetectAgents_CLIOnPath(t *testing.T) {
	stubDetection(t, []string{"claude"}, nil)

	detected := detectAgents()
	require.Len(t, detected, 1)
	assert.Equal(t, "claude_code", detected[0].ID)
	assert.False(t, detected[0].Configured)
}

func TestDetectAgents_NoneDetected(t *testing.T) {
	stubDetection(t, nil, nil)
	assert.Empty(t, detectAgents())
}

func TestDetectAgents_FileBasedAgent(t *testing.T) {
	stubDetection(t, nil, func(name string) (os.FileInfo, error) {
		if name == ".vscode" {
			return nil, nil
		}
		return nil, os.ErrNotExist
	})

	detected := detectAgents()
	require.Len(t, detected, 1)
	assert.Equal(t, "vscode_copilot", detected[0].ID)
	assert.Equal(t, filepath.Join(".vscode", "mcp.json"), detected[0].ConfigFile)
}

// --- setup ---

func TestExecuteSetup_NoAgents(t *testing.T) {
	stubDetection(t, nil, nil)

	w := &bytes.Buffer{}
	executeSetup(strings.NewReader(""), w, setupOptions{})
	assert.Contains(t, w.String(), "No supported AI agents detected.")
}

func TestExecuteSetup_AutoModeFileAgent(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(".vscode", 0o755))

	// only relative paths resolve, so the user's real agent configs are untouched
	stubDetection(t, nil, func(name string) (os.FileInfo, error) {
		if filepath.IsAbs(name) {
			return nil, os.ErrNotExist
		}
		return os.Stat(name)
	})

	w := &bytes.Buffer{}
	executeSetup(strings.NewReader(""), w, setupOptions{auto: true, serveArgs: []string{"serve", dir}})

	data, err := os.ReadFile(filepath.Join(".vscode", "mcp.json"))
	require.NoError(t, err)
	entry := decodeServers(t, data, "servers")["codeconnect"].(map[string]any)
	assert.Equal(t, "codeconnect", entry["command"])
	assert.Equal(t, []any{"serve", dir}, entry["args"])
	assert.Equal(t, "stdio", entry["type"])
	assert.Contains(t, w.String(), "VS Code Copilot configured")

	// a second run finds the entry
	w.Reset()
	executeSetup(strings.NewReader(""), w, setupOptions{auto: true})
	assert.Contains(t, w.String(), "already configured")
}

func TestExecuteSetup_Declined(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(".cursor", 0o755))
	stubDetection(t, nil, func(name string) (os.FileInfo, error) {
		if filepath.IsAbs(name) {
			return nil, os.ErrNotExist
		}
		return os.Stat(name)
	})

	executeSetup(strings.NewReader("n\n"), &bytes.Buffer{}, setupOptions{})
	assert.NoFileExists(t, filepath.Join(".cursor", "mcp.json"))
}

func TestConfigureFileAgent(t *testing.T) {
	dir := t.TempDir()
	a := agent{ServersKey: "mcpServers"}

	t.Run("creates", func(t *testing.T) {
		path := filepath.Join(dir, "sub", "mcp.json")
		require.NoError(t, configureFileAgent(a, path, []string{"serve"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, decodeServers(t, data, "mcpServers"), "codeconnect")
	})

	t.Run("merges", func(t *testing.T) {
		path := filepath.Join(dir, "mcp.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"other": {"command": "other"}}}`), 0o644))
		require.NoError(t, configureFileAgent(a, path, []string{"serve"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		servers := decodeServers(t, data, "mcpServers")
		assert.Contains(t, servers, "other")
		assert.Contains(t, servers, "codeconnect")
	})
}
