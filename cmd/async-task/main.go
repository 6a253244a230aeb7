package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"taskpool/internal/config"
	"taskpool/internal/coop"
	"taskpool/internal/logging"
	"taskpool/internal/runner"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes a single task on the cooperative loop of this process.
func run(outW io.Writer, args []string) error {
	cfg, err := config.Load("async-task", args)
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

	logger.Info("running async task", zap.Duration("sleep", cfg.Sleep))
	return runner.RunAsync(&runner.PrintTask{Out: outW, Sleep: cfg.Sleep}, coop.WithLogger(logger))
}
