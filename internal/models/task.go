package models

// Task represents one unit of work dispatched to a worker process.
// Type selects the registered executor; Params is a JSON object string.
// ID and Name only show up in logs.
type Task struct {
	ID     uint32
	Name   string
	Type   string
	Params string
}

// NewTask builds a task of the given executor type.
func NewTask(id uint32, taskType, params string) Task {
	return Task{
		ID:     id,
		Name:   taskType,
		Type:   taskType,
		Params: params,
	}
}
