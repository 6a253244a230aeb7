package executors

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"taskpool/internal/coop"
	"taskpool/internal/models"
)

// DefaultAsyncSleep is how long AsyncHelloExecutor suspends when params do not say.
const DefaultAsyncSleep = 100 * time.Millisecond

// HelloLine is the line a hello task prints from process pid.
func HelloLine(pid int) string {
	return fmt.Sprintf("DummyAsyncTask: Hello from process(id=%d)", pid)
}

// HelloExecutor prints a greeting carrying the worker's process id.
type HelloExecutor struct {
	Out io.Writer
}

func (e *HelloExecutor) Execute(task models.Task) (string, error) {
	line := HelloLine(os.Getpid())
	if _, err := fmt.Fprintln(stdout(e.Out), line); err != nil {
		return "", fmt.Errorf("failed to write hello line: %w", err)
	}
	return line, nil
}

const asyncHelloSchema = `{
	"type": "object",
	"properties": { "sleep_ms": {"type": "integer", "minimum": 0} },
	"additionalProperties": false
}`

type asyncHelloParams struct {
	SleepMS *int64 `json:"sleep_ms"`
}

// AsyncHelloExecutor starts its own cooperative loop inside the worker,
// prints the greeting, suspends, then flushes buffered output.
type AsyncHelloExecutor struct {
	Out   io.Writer
	Clock clockwork.Clock
}

func (e *AsyncHelloExecutor) ParamSchema() string { return asyncHelloSchema }

func (e *AsyncHelloExecutor) Execute(task models.Task) (string, error) {
	sleep := DefaultAsyncSleep
	if strings.TrimSpace(task.Params) != "" {
		var p asyncHelloParams
		if err := decodeParams(task.Params, &p); err != nil {
			return "", err
		}
		if p.SleepMS != nil {
			sleep = time.Duration(*p.SleepMS) * time.Millisecond
		}
	}

	var opts []coop.Option
	if e.Clock != nil {
		opts = append(opts, coop.WithClock(e.Clock))
	}

	line := HelloLine(os.Getpid())
	w := bufio.NewWriter(stdout(e.Out))
	err := coop.Run(func(co *coop.Co) coop.Result {
		fmt.Fprintln(w, line)
		return co.Sleep(sleep, func(co *coop.Co) coop.Result {
			if err := w.Flush(); err != nil {
				return co.Fail(fmt.Errorf("failed to flush hello line: %w", err))
			}
			return co.End()
		})
	}, opts...)
	if err != nil {
		return "", err
	}
	return line, nil
}
