package pool

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// File descriptors the worker finds its pipes on. ExtraFiles start at 3.
const (
	requestFD  = 3
	responseFD = 4
)

// process is the parent's view of one worker process.
type process struct {
	index     int
	cmd       *exec.Cmd
	requests  *os.File
	respFile  *os.File
	responses *bufio.Reader
	logger    *zap.Logger
}

func startProcess(index int, cfg Config, logger *zap.Logger) (*process, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create request pipe: %w", err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, fmt.Errorf("failed to create response pipe: %w", err)
	}

	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Env = append(append(os.Environ(), cfg.Env...), WorkerEnv+"=1")
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	cmd.ExtraFiles = []*os.File{reqR, respW}

	err = cmd.Start()
	// The child owns its ends now (or never will).
	reqR.Close()
	respW.Close()
	if err != nil {
		reqW.Close()
		respR.Close()
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Path, err)
	}

	p := &process{
		index:     index,
		cmd:       cmd,
		requests:  reqW,
		respFile:  respR,
		responses: bufio.NewReader(respR),
	}
	p.logger = logger.With(zap.Int("worker", index), zap.Int("pid", p.pid()))
	p.logger.Debug("worker process started")
	return p, nil
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// call sends one request and waits for its response.
func (p *process) call(req request) (response, error) {
	if err := writeFrame(p.requests, req.marshal()); err != nil {
		return response{}, fmt.Errorf("failed to send request: %w", err)
	}
	frame, err := readFrame(p.responses)
	if err != nil {
		return response{}, fmt.Errorf("failed to read response: %w", err)
	}
	var resp response
	if err := resp.unmarshal(frame); err != nil {
		return response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.ID != req.ID {
		return response{}, fmt.Errorf("response %s does not match request %s", resp.ID, req.ID)
	}
	return resp, nil
}

// stop closes the request pipe, which makes a healthy worker exit, and
// reaps the process.
func (p *process) stop() error {
	p.requests.Close()
	err := p.cmd.Wait()
	p.respFile.Close()
	if err != nil {
		p.logger.Warn("worker process exited with error", zap.Error(err))
		return fmt.Errorf("worker %d (pid %d): %w", p.index, p.pid(), err)
	}
	p.logger.Debug("worker process exited")
	return nil
}
