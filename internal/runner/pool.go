package runner

import (
	"fmt"

	"go.uber.org/zap"

	"taskpool/internal/models"
	"taskpool/internal/pool"
)

// Handle is a dispatched task that can be waited on.
type Handle interface {
	Wait() (pool.Result, error)
}

// WorkerPool is what the executors need from a pool: submit, wait through
// the handle or both at once, close once.
type WorkerPool interface {
	Submit(task models.Task) (Handle, error)
	Apply(task models.Task) (pool.Result, error)
	Close() error
}

// PoolFactory creates a pool with the given number of workers.
type PoolFactory func(processes int) (WorkerPool, error)

// ProcessPoolFactory creates OS process pools from cfg. cfg.Processes is
// replaced by the requested size.
func ProcessPoolFactory(cfg pool.Config) PoolFactory {
	return func(processes int) (WorkerPool, error) {
		cfg.Processes = processes
		p, err := pool.New(cfg)
		if err != nil {
			return nil, err
		}
		return processPool{p}, nil
	}
}

type processPool struct {
	*pool.Pool
}

func (p processPool) Submit(task models.Task) (Handle, error) {
	h, err := p.Pool.Submit(task)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Option configures an executor.
type Option func(*options)

type options struct {
	newPool PoolFactory
	logger  *zap.Logger
}

// WithPoolFactory replaces the OS process pool.
func WithPoolFactory(f PoolFactory) Option {
	return func(o *options) { o.newPool = f }
}

// WithLogger sets the executor logger. It is also handed to the default pool.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.newPool == nil {
		o.newPool = ProcessPoolFactory(pool.Config{Logger: o.logger})
	}
	return o
}

func acquire(o options, processes int) (WorkerPool, error) {
	p, err := o.newPool(processes)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return p, nil
}

func release(p WorkerPool) error {
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to close worker pool: %w", err)
	}
	return nil
}
