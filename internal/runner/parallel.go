package runner

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"taskpool/internal/models"
	"taskpool/internal/task-worker/executors"
)

// ParallelTaskExecutor hands tasks to a pool one at a time with Apply, so
// each finishes before the next is submitted.
//
// Waiting inside the loop means only one task is ever in flight, however many
// workers the pool has. The behaviour is kept on purpose;
// ParallelAsyncTaskExecutor is the variant that actually runs tasks in
// parallel.
type ParallelTaskExecutor struct {
	NumProcesses int
	opts         options
}

func NewParallelTaskExecutor(numProcesses int, opts ...Option) *ParallelTaskExecutor {
	return &ParallelTaskExecutor{NumProcesses: numProcesses, opts: newOptions(opts)}
}

// ExecuteTasks runs tasks in input order. It stops at the first failure; the
// pool is released on every path.
func (e *ParallelTaskExecutor) ExecuteTasks(tasks []models.Task) (err error) {
	p, err := acquire(e.opts, e.NumProcesses)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, release(p)) }()

	logger := e.opts.logger
	for _, task := range tasks {
		result, err := p.Apply(task)
		if err != nil {
			return fmt.Errorf("task %d: %w", task.ID, err)
		}
		logger.Debug("task completed", zap.Uint32("task", task.ID), zap.Int("pid", result.PID))
	}
	return nil
}

// ParallelAsyncTaskExecutor submits every task up front and then waits on
// the handles in submission order.
type ParallelAsyncTaskExecutor struct {
	NumProcesses int
	opts         options
}

func NewParallelAsyncTaskExecutor(numProcesses int, opts ...Option) *ParallelAsyncTaskExecutor {
	return &ParallelAsyncTaskExecutor{NumProcesses: numProcesses, opts: newOptions(opts)}
}

// ExecuteTasks returns the error of the first handle, in submission order,
// that failed. Tasks after it are not cancelled; they finish before the pool
// closes.
func (e *ParallelAsyncTaskExecutor) ExecuteTasks(tasks []models.Task) (err error) {
	p, err := acquire(e.opts, e.NumProcesses)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, release(p)) }()

	handles := make([]Handle, 0, len(tasks))
	for _, task := range tasks {
		h, err := p.Submit(task)
		if err != nil {
			return fmt.Errorf("failed to submit task %d: %w", task.ID, err)
		}
		handles = append(handles, h)
	}

	logger := e.opts.logger
	for i, h := range handles {
		result, err := h.Wait()
		if err != nil {
			return fmt.Errorf("task %d: %w", tasks[i].ID, err)
		}
		logger.Debug("task completed", zap.Uint32("task", tasks[i].ID), zap.Int("pid", result.PID))
	}
	return nil
}

// HelloTasks builds n tasks that print a greeting from their worker.
func HelloTasks(n int) []models.Task {
	tasks := make([]models.Task, n)
	for i := range tasks {
		tasks[i] = models.NewTask(uint32(i+1), executors.ExecutorTypeHello, "")
	}
	return tasks
}

// AsyncHelloTasks builds n tasks that greet, suspend for sleep on their
// worker's own cooperative loop, then flush.
func AsyncHelloTasks(n int, sleep time.Duration) []models.Task {
	params := fmt.Sprintf(`{"sleep_ms": %d}`, sleep.Milliseconds())
	tasks := make([]models.Task, n)
	for i := range tasks {
		tasks[i] = models.NewTask(uint32(i+1), executors.ExecutorTypeAsyncHello, params)
	}
	return tasks
}
