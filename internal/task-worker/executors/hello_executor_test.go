package executors

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpool/internal/models"
)

func TestHelloExecutor_Execute(t *testing.T) {
	var out bytes.Buffer
	executor := &HelloExecutor{Out: &out}

	result, err := executor.Execute(models.NewTask(1, ExecutorTypeHello, ""))
	require.NoError(t, err)

	expected := HelloLine(os.Getpid())
	assert.Equal(t, expected, result)
	assert.Equal(t, expected+"\n", out.String())
}

func TestAsyncHelloExecutor_FlushesAfterSleep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var out bytes.Buffer
	executor := &AsyncHelloExecutor{Out: &out, Clock: clock}

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := executor.Execute(models.NewTask(1, ExecutorTypeAsyncHello, `{"sleep_ms": 250}`))
		done <- outcome{result, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(250 * time.Millisecond)

	select {
	case o := <-done:
		require.NoError(t, o.err)
		assert.Equal(t, HelloLine(os.Getpid()), o.result)
	case <-ctx.Done():
		t.Fatal("async hello did not finish")
	}
	assert.Equal(t, HelloLine(os.Getpid())+"\n", out.String())
}

func TestAsyncHelloExecutor_DefaultSleep(t *testing.T) {
	var out bytes.Buffer
	executor := &AsyncHelloExecutor{Out: &out}

	start := time.Now()
	_, err := executor.Execute(models.NewTask(1, ExecutorTypeAsyncHello, ""))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), DefaultAsyncSleep)
	assert.Contains(t, out.String(), "Hello from process")
}

func TestAsyncHelloExecutor_MalformedParams(t *testing.T) {
	executor := &AsyncHelloExecutor{Out: &bytes.Buffer{}}
	_, err := executor.Execute(models.NewTask(1, ExecutorTypeAsyncHello, `{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task params")
}

func TestEchoExecutor_Execute(t *testing.T) {
	result, err := (&EchoExecutor{}).Execute(models.NewTask(1, ExecutorTypeEcho, `{"message": "hello"}`))
	assert.NoError(t, err)
	assert.Equal(t, `EchoExecutor processed params: {"message": "hello"}`, result)
}

func TestFailExecutor_Execute(t *testing.T) {
	_, err := (&FailExecutor{}).Execute(models.NewTask(1, ExecutorTypeFail, ""))
	assert.EqualError(t, err, DefaultFailMessage)

	_, err = (&FailExecutor{}).Execute(models.NewTask(1, ExecutorTypeFail, `{"message": "custom"}`))
	assert.EqualError(t, err, "custom")
}
