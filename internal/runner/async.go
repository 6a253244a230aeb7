// Package runner wires tasks to the cooperative loop and to process pools.
package runner

import (
	"fmt"
	"io"
	"os"
	"time"

	"taskpool/internal/coop"
)

// AsyncTask is a unit of work that may suspend at yield points.
type AsyncTask interface {
	Run(co *coop.Co) coop.Result
}

// PrintTask prints a message and then suspends.
type PrintTask struct {
	Out     io.Writer
	Message string
	Sleep   time.Duration
}

// DefaultAsyncMessage is what PrintTask prints when Message is empty.
const DefaultAsyncMessage = "async task!"

func (t *PrintTask) Run(co *coop.Co) coop.Result {
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	msg := t.Message
	if msg == "" {
		msg = DefaultAsyncMessage
	}
	if _, err := fmt.Fprintln(out, msg); err != nil {
		return co.Fail(err)
	}
	return co.Sleep(t.Sleep, func(co *coop.Co) coop.Result { return co.End() })
}

// RunAsync runs task to completion on a fresh cooperative loop.
func RunAsync(task AsyncTask, opts ...coop.Option) error {
	return coop.Run(task.Run, opts...)
}
