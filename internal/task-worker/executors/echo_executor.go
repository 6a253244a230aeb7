package executors

import (
	"errors"
	"fmt"
	"strings"

	"taskpool/internal/models"
)

// EchoExecutor returns its params.
type EchoExecutor struct{}

func (e *EchoExecutor) Execute(task models.Task) (string, error) {
	return fmt.Sprintf("EchoExecutor processed params: %s", task.Params), nil
}

const failSchema = `{
	"type": "object",
	"properties": { "message": {"type": "string"} }
}`

// DefaultFailMessage is returned by FailExecutor when params carry no message.
const DefaultFailMessage = "task failed"

// FailExecutor always fails. It stands in for a task that raises.
type FailExecutor struct{}

func (e *FailExecutor) ParamSchema() string { return failSchema }

func (e *FailExecutor) Execute(task models.Task) (string, error) {
	msg := DefaultFailMessage
	if strings.TrimSpace(task.Params) != "" {
		var p struct {
			Message string `json:"message"`
		}
		if err := decodeParams(task.Params, &p); err != nil {
			return "", err
		}
		if p.Message != "" {
			msg = p.Message
		}
	}
	return "", errors.New(msg)
}
