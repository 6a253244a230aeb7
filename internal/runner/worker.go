package runner

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"taskpool/internal/config"
	"taskpool/internal/logging"
	"taskpool/internal/pool"
	"taskpool/internal/task-worker/executors"
)

// WorkerMain serves pool requests with the registered executors and returns
// the process exit code. Workers take only their log settings from the
// environment; the parent forwards its resolved ones with Config.LoggingEnv.
func WorkerMain() int {
	level, format := config.LoadLogging()
	logger, err := logging.New(level, format, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	if err := pool.ServeWorker(logger, executors.Dispatch); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		return 1
	}
	return 0
}
