package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpool/internal/coop"
)

func TestRunAsync_PrintTask(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var out bytes.Buffer
	done := make(chan error, 1)

	go func() {
		done <- RunAsync(&PrintTask{Out: &out, Sleep: time.Second}, coop.WithClock(clock))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("task finished before its sleep elapsed")
	default:
	}

	clock.Advance(time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, DefaultAsyncMessage+"\n", out.String())
}

func TestRunAsync_CustomMessage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunAsync(&PrintTask{Out: &out, Message: "hi"}))
	assert.Equal(t, "hi\n", out.String())
}

type failingTask struct{ err error }

func (f failingTask) Run(co *coop.Co) coop.Result { return co.Fail(f.err) }

func TestRunAsync_Error(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, RunAsync(failingTask{err: boom}), boom)
}
