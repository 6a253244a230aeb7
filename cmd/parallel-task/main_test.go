package main

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpool/internal/pool"
	"taskpool/internal/runner"
)

func TestMain(m *testing.M) {
	if pool.IsWorkerProcess() {
		os.Exit(runner.WorkerMain())
	}
	os.Exit(m.Run())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun(t *testing.T) {
	out := &lockedBuffer{}
	require.NoError(t, run(out, []string{"--processes", "2", "--tasks", "3", "--sleep", "10ms"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "DummyAsyncTask: Hello from process(id="), line)
	}
}

func TestRun_NoTasks(t *testing.T) {
	out := &lockedBuffer{}
	require.NoError(t, run(out, []string{"--tasks", "0"}))
	assert.Empty(t, out.String())
}

func TestRun_InvalidProcesses(t *testing.T) {
	err := run(&lockedBuffer{}, []string{"--processes", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processes must be positive")
}

func TestRun_FlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Setenv("TASKPOOL_PROCESSES", "0")
	t.Setenv("TASKPOOL_TASKS", "-1")

	out := &lockedBuffer{}
	require.NoError(t, run(out, []string{"--processes", "2", "--tasks", "2", "--sleep", "10ms"}))
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)
}
