package messages

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Executable runs an external parser. The request is written to the
// command's stdin as JSON and the response is read from its stdout. Lines
// written to stderr are logged at debug level.
type Executable struct {
	// Command is a shell command line, e.g. "swift run figma-swift".
	Command string
	// Dir is the working directory, normally the project root.
	Dir    string
	Logger *slog.Logger
}

// NewExecutable creates a runner for command in dir.
func NewExecutable(command, dir string, logger *slog.Logger) *Executable {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executable{Command: command, Dir: dir, Logger: logger}
}

// Parse sends a PARSE request and returns the validated response.
func (e *Executable) Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	out, err := e.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeParseResponse(out)
}

// Call runs the command with payload on stdin and returns its stdout.
func (e *Executable) Call(ctx context.Context, payload any) ([]byte, error) {
	if strings.TrimSpace(e.Command) == "" {
		return nil, fmt.Errorf("parser command is empty")
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode parser request: %w", err)
	}

	start := time.Now()
	cmd := shellCommand(ctx, e.Command)
	cmd.Dir = e.Dir
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Logger.Debug("running parser", "command", e.Command, "dir", e.Dir)
	runErr := cmd.Run()

	scanner := bufio.NewScanner(&stderr)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			e.Logger.Debug(line, "parser", e.Command)
		}
	}
	if runErr != nil {
		return nil, fmt.Errorf("parser command %q failed: %w", e.Command, runErr)
	}

	e.Logger.Debug("parser finished", "command", e.Command, "ms", time.Since(start).Milliseconds())
	return stdout.Bytes(), nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
