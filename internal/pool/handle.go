package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskpool/internal/models"
)

var (
	ErrInvalidPoolSize = errors.New("pool: number of processes must be positive")
	ErrPoolClosed      = errors.New("pool: closed")
	ErrWorkerExited    = errors.New("pool: worker process exited")
	ErrNoWorkers       = errors.New("pool: no live worker processes")
)

// TaskError reports a task that failed inside its worker process.
type TaskError struct {
	TaskID  uint32
	Type    string
	PID     int
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d (%s) failed in process %d: %s", e.TaskID, e.Type, e.PID, e.Message)
}

// Result describes a completed task.
type Result struct {
	Output     string
	PID        int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Handle refers to a submitted task.
type Handle struct {
	id     string
	task   models.Task
	done   chan struct{}
	result Result
	err    error
}

func newHandle(task models.Task) *Handle {
	return &Handle{
		id:   uuid.NewString(),
		task: task,
		done: make(chan struct{}),
	}
}

// Task returns the submitted task.
func (h *Handle) Task() models.Task { return h.task }

// Done is closed once the task completed or failed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Ready reports whether Wait would return immediately.
func (h *Handle) Ready() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task completes. It never times out: a hung worker
// hangs the caller.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}

// resolve must be called exactly once.
func (h *Handle) resolve(result Result, err error) {
	h.result = result
	h.err = err
	close(h.done)
}
