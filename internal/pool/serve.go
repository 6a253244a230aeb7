package pool

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"taskpool/internal/models"
)

// WorkerEnv is set to "1" in the environment of every worker process.
const WorkerEnv = "TASKPOOL_WORKER_PROCESS"

// Dispatcher runs one task inside the worker process.
type Dispatcher func(task models.Task) (string, error)

// IsWorkerProcess reports whether this process was started by a Pool.
func IsWorkerProcess() bool {
	return os.Getenv(WorkerEnv) == "1"
}

// ServeWorker answers requests from the parent pool until the parent closes
// the request pipe. Each worker handles one task at a time.
func ServeWorker(logger *zap.Logger, dispatch Dispatcher) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := os.NewFile(requestFD, "taskpool-requests")
	out := os.NewFile(responseFD, "taskpool-responses")
	defer in.Close()
	defer out.Close()

	return serve(bufio.NewReader(in), out, logger.With(zap.Int("pid", os.Getpid())), dispatch)
}

func serve(r *bufio.Reader, w io.Writer, logger *zap.Logger, dispatch Dispatcher) error {
	pid := os.Getpid()
	for {
		frame, err := readFrame(r)
		if err == io.EOF {
			logger.Debug("request pipe closed, worker exiting")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		var req request
		if err := req.unmarshal(frame); err != nil {
			return fmt.Errorf("failed to decode request: %w", err)
		}
		task := models.Task{
			ID:     req.TaskID,
			Name:   req.Name,
			Type:   req.Type,
			Params: req.Params,
		}

		resp := response{ID: req.ID, PID: pid, StartedAt: time.Now().UnixNano()}
		output, err := dispatch(task)
		resp.FinishedAt = time.Now().UnixNano()
		if err != nil {
			logger.Debug("task failed", zap.Uint32("task", task.ID), zap.Error(err))
			resp.Failed = true
			resp.Error = err.Error()
		} else {
			resp.Output = output
		}

		if err := writeFrame(w, resp.marshal()); err != nil {
			return fmt.Errorf("failed to write response for task %d: %w", task.ID, err)
		}
	}
}
