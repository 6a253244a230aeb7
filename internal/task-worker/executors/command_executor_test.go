package executors

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpool/internal/models"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not found in PATH")
	}
	return sh
}

func commandTask(params string) models.Task {
	return models.NewTask(1, ExecutorTypeCommand, params)
}

func TestCommandExecutor_Execute_Success(t *testing.T) {
	sh := requireShell(t)
	result, err := (&CommandExecutor{}).Execute(commandTask(`{"path": "` + sh + `", "args": ["-c", "echo hello from sh"]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello from sh\n", result)
}

func TestCommandExecutor_Execute_NonZeroExit(t *testing.T) {
	sh := requireShell(t)
	result, err := (&CommandExecutor{}).Execute(commandTask(`{"path": "` + sh + `", "args": ["-c", "echo custom error message >&2; exit 5"]}`))
	require.Error(t, err)
	assert.Empty(t, result)
	assert.Contains(t, err.Error(), "exit status 5")
	assert.Contains(t, err.Error(), "custom error message")
}

func TestCommandExecutor_Execute_Timeout(t *testing.T) {
	sh := requireShell(t)
	_, err := (&CommandExecutor{}).Execute(commandTask(`{"path": "` + sh + `", "args": ["-c", "exec sleep 5"], "timeout_ms": 100}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command execution timed out after 100ms")
}

func TestCommandExecutor_Execute_StderrNoError(t *testing.T) {
	sh := requireShell(t)
	result, err := (&CommandExecutor{}).Execute(commandTask(`{"path": "` + sh + `", "args": ["-c", "echo warning >&2; echo hello"]}`))
	assert.NoError(t, err, "stderr output alone should not fail the task")
	assert.Equal(t, "hello\n", result)
}

func TestCommandExecutor_Execute_EmptyPath(t *testing.T) {
	_, err := (&CommandExecutor{}).Execute(commandTask(`{"path": ""}`))
	assert.EqualError(t, err, "command path in task params is empty")
}

func TestCommandExecutor_Dispatch_RequiresPath(t *testing.T) {
	_, err := Dispatch(commandTask(`{"args": ["x"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing properties: 'path'")
}
