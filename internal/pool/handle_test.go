package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskpool/internal/models"
)

func TestHandle_ResolveOnce(t *testing.T) {
	h := newHandle(models.NewTask(1, "echo", ""))
	assert.False(t, h.Ready())
	assert.NotEmpty(t, h.id)

	boom := errors.New("boom")
	h.resolve(Result{PID: 10}, boom)

	assert.True(t, h.Ready())
	r, err := h.Wait()
	assert.Equal(t, 10, r.PID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint32(1), h.Task().ID)
}

func TestHandle_DistinctIDs(t *testing.T) {
	a := newHandle(models.Task{})
	b := newHandle(models.Task{})
	assert.NotEqual(t, a.id, b.id)
}

func TestTaskError_Message(t *testing.T) {
	err := &TaskError{TaskID: 3, Type: "fail", PID: 99, Message: "nope"}
	assert.EqualError(t, err, "task 3 (fail) failed in process 99: nope")
}
