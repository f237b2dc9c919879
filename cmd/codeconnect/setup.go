package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// serverName is the key the MCP server is registered under.
const serverName = "codeconnect"

// agent describes how to detect and configure one MCP client.
type agent struct {
	ID          string
	DisplayName string
	Method      string            // "cli" or "file"
	Binary      string            // cli: binary name on PATH
	DirMarkers  []string          // file: directories that indicate the agent is used
	ConfigPath  func() string     // file: config file path
	ServersKey  string            // file: "servers" (VS Code) or "mcpServers"
	NeedsScope  bool              // cli: prompt for project/user scope
	ExtraFields map[string]string // file: extra fields of the server entry
}

// detectedAgent is an agent found on the system.
type detectedAgent struct {
	agent
	Configured bool
	ConfigFile string
}

type setupOptions struct {
	auto bool
	// serveArgs are the arguments the agent starts codeconnect with.
	serveArgs []string
}

// Replaceable for testing.
var lookPathFunc = exec.LookPath
var statFunc = os.Stat

var agents = []agent{
	{
		ID: "claude_code", DisplayName: "Claude Code",
		Method: "cli", Binary: "claude", NeedsScope: true,
	},
	{
		ID: "openai_codex", DisplayName: "OpenAI Codex",
		Method: "cli", Binary: "codex", NeedsScope: true,
	},
	{
		ID: "vscode_copilot", DisplayName: "VS Code Copilot",
		Method: "file", DirMarkers: []string{".vscode"},
		ConfigPath:  func() string { return filepath.Join(".vscode", "mcp.json") },
		ServersKey:  "servers",
		ExtraFields: map[string]string{"type": "stdio"},
	},
	{
		ID: "cursor", DisplayName: "Cursor",
		Method: "file", DirMarkers: []string{".cursor"},
		ConfigPath: func() string { return filepath.Join(".cursor", "mcp.json") },
		ServersKey: "mcpServers",
	},
	{
		ID: "claude_desktop", DisplayName: "Claude Desktop",
		Method:     "file",
		ConfigPath: claudeDesktopConfigPath,
		ServersKey: "mcpServers",
	},
}

func claudeDesktopConfigPath() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

func newSetupCmd() *cobra.Command {
	opts := setupOptions{}
	var dir string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the codeconnect MCP server with installed AI agents",
		Long: `Detect AI agents (Claude Code, Codex, VS Code Copilot, Cursor, Claude Desktop)
and add a "codeconnect" MCP server entry that runs "codeconnect serve" to each
of them. Agents that already have the entry are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.serveArgs = []string{"serve"}
			if dir != "" {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}
				opts.serveArgs = append(opts.serveArgs, abs)
			}
			executeSetup(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Configure every detected agent without prompting")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Project directory the server indexes (default: the agent's working directory)")
	return cmd
}

func detectAgents() []detectedAgent {
	var detected []detectedAgent

	for _, a := range agents {
		switch a.Method {
		case "cli":
			if _, err := lookPathFunc(a.Binary); err == nil {
				detected = append(detected, detectedAgent{agent: a, Configured: hasServerEntry(".mcp.json", "mcpServers")})
			}

		case "file":
			found := false
			configFile := ""
			for _, marker := range a.DirMarkers {
				if _, err := statFunc(marker); err == nil {
					found = true
					configFile = a.ConfigPath()
					break
				}
			}
			// Agents without markers are present when their config directory is.
			if !found && len(a.DirMarkers) == 0 && a.ConfigPath != nil {
				configFile = a.ConfigPath()
				if _, err := statFunc(filepath.Dir(configFile)); err == nil {
					found = true
				}
			}
			if found {
				detected = append(detected, detectedAgent{
					agent:      a,
					Configured: hasServerEntry(configFile, a.ServersKey),
					ConfigFile: configFile,
				})
			}
		}
	}
	return detected
}

// hasServerEntry reports whether the JSON config at path registers the
// server under serversKey.
func hasServerEntry(path, serversKey string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, exists := servers[serverName]
	return exists
}

func serverEntry(serveArgs []string, extra map[string]string) map[string]any {
	args := make([]any, len(serveArgs))
	for i, a := range serveArgs {
		args[i] = a
	}
	entry := map[string]any{
		"command": serverName,
		"args":    args,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds the server entry under serversKey of the existing
// JSON config and returns the merged config. It returns nil, nil when the
// entry already exists.
func mergeServerEntry(existing []byte, serversKey string, serveArgs []string, extra map[string]string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}

	servers[serverName] = serverEntry(serveArgs, extra)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// configureCLIAgent runs `<binary> mcp add` with the chosen scope.
func configureCLIAgent(a agent, scope string, serveArgs []string) error {
	args := []string{"mcp", "add"}
	if scope != "" {
		args = append(args, "--scope", scope)
	}
	args = append(args, serverName, "--", serverName)
	args = append(args, serveArgs...)
	cmd := exec.Command(a.Binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func configureFileAgent(a agent, configFile string, serveArgs []string) error {
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var existing []byte
	if data, err := os.ReadFile(configFile); err == nil {
		existing = data
	}

	merged, err := mergeServerEntry(existing, a.ServersKey, serveArgs, a.ExtraFields)
	if err != nil {
		return err
	}
	if merged == nil {
		return nil
	}
	return os.WriteFile(configFile, merged, 0o644)
}

// promptYesNo reads a Y/n answer. Empty input and EOF mean yes.
func promptYesNo(r *bufio.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(line))
	return answer == "" || answer == "y" || answer == "yes"
}

// promptScope returns "project", "user", or "" to skip.
func promptScope(r *bufio.Reader, w io.Writer, agentName string) string {
	fmt.Fprintf(w, "\n%s: add the codeconnect MCP server?\n", agentName)
	fmt.Fprintln(w, "  [1] Project scope (shared with team)")
	fmt.Fprintln(w, "  [2] User scope (personal, global)")
	fmt.Fprintln(w, "  [3] Skip")
	fmt.Fprintf(w, "  > ")

	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "project"
	}
	switch strings.TrimSpace(line) {
	case "1", "":
		return "project"
	case "2":
		return "user"
	default:
		return ""
	}
}

// executeSetup detects agents and configures them, reading answers from r.
func executeSetup(in io.Reader, w io.Writer, opts setupOptions) {
	if len(opts.serveArgs) == 0 {
		opts.serveArgs = []string{"serve"}
	}
	r := bufio.NewReader(in)

	detected := detectAgents()
	if len(detected) == 0 {
		fmt.Fprintln(w, "No supported AI agents detected.")
		return
	}

	fmt.Fprintln(w, titleStyle.Render("Detected AI agents:"))
	for _, d := range detected {
		if d.Configured {
			fmt.Fprintf(w, "  * %s %s\n", d.DisplayName, mutedStyle.Render("(already configured)"))
		} else {
			fmt.Fprintf(w, "  * %s\n", d.DisplayName)
		}
	}
	fmt.Fprintln(w)

	if !opts.auto && !promptYesNo(r, w, "Configure agents? [Y/n]") {
		return
	}

	for _, d := range detected {
		if d.Configured {
			fmt.Fprintf(w, "\n%s: already configured, skipping\n", d.DisplayName)
			continue
		}
		configureAgent(r, w, d, opts)
	}
}

func configureAgent(r *bufio.Reader, w io.Writer, d detectedAgent, opts setupOptions) {
	switch d.Method {
	case "cli":
		scope := "project"
		if !opts.auto && d.NeedsScope {
			scope = promptScope(r, w, d.DisplayName)
			if scope == "" {
				fmt.Fprintln(w, "  skipped")
				return
			}
		}
		if err := configureCLIAgent(d.agent, scope, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  %s %s: %v\n", errStyle.Render("!"), d.DisplayName, err)
			return
		}
		fmt.Fprintf(w, "  %s %s configured (scope: %s)\n", okStyle.Render("+"), d.DisplayName, scope)

	case "file":
		if !opts.auto && !promptYesNo(r, w, fmt.Sprintf("\n%s: add to %s? [Y/n]", d.DisplayName, d.ConfigFile)) {
			fmt.Fprintln(w, "  skipped")
			return
		}
		if err := configureFileAgent(d.agent, d.ConfigFile, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  %s %s: %v\n", errStyle.Render("!"), d.DisplayName, err)
			return
		}
		fmt.Fprintf(w, "  %s %s configured (%s)\n", okStyle.Render("+"), d.DisplayName, d.ConfigFile)
	}
}
