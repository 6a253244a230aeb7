package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"taskpool/internal/config"
	"taskpool/internal/logging"
	"taskpool/internal/pool"
	"taskpool/internal/runner"
)

func main() {
	if pool.IsWorkerProcess() {
		os.Exit(runner.WorkerMain())
	}

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches hello tasks to a process pool, one at a time.
func run(outW io.Writer, args []string) error {
	cfg, err := config.Load("parallel-task", args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting pool", zap.Int("processes", cfg.Processes), zap.Int("tasks", cfg.Tasks))
	executor := runner.NewParallelTaskExecutor(cfg.Processes,
		runner.WithLogger(logger),
		runner.WithPoolFactory(runner.ProcessPoolFactory(pool.Config{
			Env:    cfg.LoggingEnv(),
			Stdout: outW,
			Logger: logger,
		})),
	)
	return executor.ExecuteTasks(runner.HelloTasks(cfg.Tasks))
}
