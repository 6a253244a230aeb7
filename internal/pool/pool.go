// Package pool runs tasks on a fixed set of OS worker processes.
//
// Workers are the current executable re-run with WorkerEnv set; a program
// that creates pools must call ServeWorker early in main when
// IsWorkerProcess reports true. Requests and responses travel over
// inherited pipes, so the worker's stdout and stderr stay its own.
package pool

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskpool/internal/models"
)

// Config describes a pool.
type Config struct {
	// Processes is the number of worker processes. Must be positive.
	Processes int
	// Path is the worker binary. Defaults to the current executable.
	Path string
	Args []string
	// Env is appended to the parent's environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// Pool is a fixed-size process pool. Tasks are handed to idle workers in
// submission order. There is no backpressure: Submit never blocks.
type Pool struct {
	logger *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Handle
	closed bool
	live   int

	group     errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// New starts cfg.Processes workers.
func New(cfg Config) (*Pool, error) {
	if cfg.Processes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, cfg.Processes)
	}
	if cfg.Path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve worker executable: %w", err)
		}
		cfg.Path = exe
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	procs := make([]*process, 0, cfg.Processes)
	for i := 0; i < cfg.Processes; i++ {
		proc, err := startProcess(i, cfg, logger)
		if err != nil {
			for _, started := range procs {
				started.stop()
			}
			return nil, fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		procs = append(procs, proc)
	}

	p := &Pool{
		logger: logger,
		live:   len(procs),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, proc := range procs {
		proc := proc
		p.group.Go(func() error { return p.work(proc) })
	}
	logger.Info("process pool started", zap.Int("processes", len(procs)), zap.String("path", cfg.Path))
	return p, nil
}

// Submit queues task and returns immediately.
func (p *Pool) Submit(task models.Task) (*Handle, error) {
	h := newHandle(task)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.live == 0 {
		return nil, ErrNoWorkers
	}
	p.queue = append(p.queue, h)
	p.cond.Signal()
	return h, nil
}

// Apply submits task and waits for it.
func (p *Pool) Apply(task models.Task) (Result, error) {
	h, err := p.Submit(task)
	if err != nil {
		return Result{}, err
	}
	return h.Wait()
}

// Close stops accepting tasks, lets the workers finish everything already
// queued, then shuts them down. It returns the first worker exit error.
// Calling Close more than once returns the same result.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()

		p.closeErr = p.group.Wait()
		p.logger.Info("process pool closed", zap.Error(p.closeErr))
	})
	return p.closeErr
}

// With creates a pool, runs fn with it and closes the pool on every path out.
func With(cfg Config, fn func(*Pool) error) (err error) {
	p, err := New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, p.Close())
	}()
	return fn(p)
}

// next blocks until a task is queued. It returns nil once the pool is
// closed and drained.
func (p *Pool) next() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil
	}
	h := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return h
}

// lost records a dead worker. When none are left, queued tasks fail.
func (p *Pool) lost() {
	p.mu.Lock()
	p.live--
	var orphans []*Handle
	if p.live == 0 {
		orphans, p.queue = p.queue, nil
	}
	p.mu.Unlock()

	for _, h := range orphans {
		h.resolve(Result{}, ErrNoWorkers)
	}
}

func (p *Pool) work(proc *process) error {
	for {
		h := p.next()
		if h == nil {
			return proc.stop()
		}

		logger := proc.logger.With(zap.Uint32("task", h.task.ID), zap.String("type", h.task.Type))
		logger.Debug("dispatching task")

		resp, err := proc.call(request{
			ID:     h.id,
			TaskID: h.task.ID,
			Name:   h.task.Name,
			Type:   h.task.Type,
			Params: h.task.Params,
		})
		if err != nil {
			logger.Error("worker failed while running task", zap.Error(err))
			p.lost()
			h.resolve(Result{PID: proc.pid()}, fmt.Errorf("%w: pid %d running task %d: %v", ErrWorkerExited, proc.pid(), h.task.ID, err))
			return proc.stop()
		}

		result := Result{
			Output:     resp.Output,
			PID:        resp.PID,
			StartedAt:  time.Unix(0, resp.StartedAt),
			FinishedAt: time.Unix(0, resp.FinishedAt),
		}
		if resp.Failed {
			logger.Debug("task failed", zap.String("error", resp.Error))
			h.resolve(result, &TaskError{
				TaskID:  h.task.ID,
				Type:    h.task.Type,
				PID:     resp.PID,
				Message: resp.Error,
			})
			continue
		}
		logger.Debug("task completed", zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
		h.resolve(result, nil)
	}
}
