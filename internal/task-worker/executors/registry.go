package executors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"taskpool/internal/models"
	"taskpool/pkg/validation"
)

// ExecutorType constants
const (
	ExecutorTypeHello      = "hello"
	ExecutorTypeAsyncHello = "async-hello"
	ExecutorTypeEcho       = "echo"
	ExecutorTypeCommand    = "command"
	ExecutorTypeFail       = "fail"
)

// Executor runs one task inside a worker process.
type Executor interface {
	Execute(task models.Task) (result string, err error)
}

// SchemaProvider is implemented by executors that constrain their params.
// The worker validates params against the schema before calling Execute.
type SchemaProvider interface {
	ParamSchema() string
}

// Registry maps executor types to executors. Registration must happen before
// any worker starts serving, typically from init or TestMain, since both the
// parent and the re-executed worker process need the same entries.
var Registry = make(map[string]Executor)

func init() {
	RegisterExecutor(ExecutorTypeHello, &HelloExecutor{})
	RegisterExecutor(ExecutorTypeAsyncHello, &AsyncHelloExecutor{})
	RegisterExecutor(ExecutorTypeEcho, &EchoExecutor{})
	RegisterExecutor(ExecutorTypeCommand, &CommandExecutor{})
	RegisterExecutor(ExecutorTypeFail, &FailExecutor{})
}

func RegisterExecutor(executorType string, executor Executor) {
	Registry[executorType] = executor
}

func GetExecutor(executorType string) (Executor, error) {
	executor, exists := Registry[executorType]
	if !exists {
		return nil, fmt.Errorf("no executor registered for type: %s", executorType)
	}
	return executor, nil
}

// Dispatch runs task on the executor registered for its type, validating
// params first when the executor declares a schema. A panicking executor is
// reported as an error.
func Dispatch(task models.Task) (result string, err error) {
	executor, err := GetExecutor(task.Type)
	if err != nil {
		return "", err
	}
	if sp, ok := executor.(SchemaProvider); ok {
		if err := validation.ValidateParams(sp.ParamSchema(), task.Params); err != nil {
			return "", fmt.Errorf("params validation failed for task %d: %w", task.ID, err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor %s panicked: %v\n%s", task.Type, r, debug.Stack())
		}
	}()
	return executor.Execute(task)
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func decodeParams(params string, v interface{}) error {
	if err := json.Unmarshal([]byte(params), v); err != nil {
		return fmt.Errorf("invalid task params: %w", err)
	}
	return nil
}
