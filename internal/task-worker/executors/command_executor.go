package executors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"taskpool/internal/models"
)

// DefaultCommandTimeout bounds a command when params set no timeout_ms.
const DefaultCommandTimeout = 30 * time.Second

const commandSchema = `{
	"type": "object",
	"properties": {
		"path": {"type": "string", "minLength": 1},
		"args": {"type": "array", "items": {"type": "string"}},
		"timeout_ms": {"type": "integer", "minimum": 1}
	},
	"required": ["path"]
}`

type commandParams struct {
	Path      string   `json:"path"`
	Args      []string `json:"args"`
	TimeoutMS int64    `json:"timeout_ms"`
}

// CommandExecutor runs an external program from the worker and returns its stdout.
type CommandExecutor struct{}

func (ce *CommandExecutor) ParamSchema() string { return commandSchema }

func (ce *CommandExecutor) Execute(task models.Task) (string, error) {
	var p commandParams
	if err := decodeParams(task.Params, &p); err != nil {
		return "", err
	}
	if p.Path == "" {
		return "", errors.New("command path in task params is empty")
	}
	timeout := DefaultCommandTimeout
	if p.TimeoutMS > 0 {
		timeout = time.Duration(p.TimeoutMS) * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	// Grandchildren may hold the output pipes open after the kill.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command execution timed out after %s. Stderr: %s", timeout, stderr.String())
		}
		return "", fmt.Errorf("command execution failed: %w. Stderr: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
