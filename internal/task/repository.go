package task

import (
	"context"
	"errors"
)

// ErrAlreadyAssigned is returned by AssignIfUnassigned when the stored task
// already carries a worker.
var ErrAlreadyAssigned = errors.New("task already assigned")

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	// ListByDate returns every task scheduled on date (YYYY-MM-DD) regardless
	// of property or group.
	ListByDate(ctx context.Context, date string) ([]*Task, error)
	// AssignIfUnassigned sets the worker fields and marks the task
	// auto-assigned only if it has no worker yet. Otherwise it returns an
	// error wrapping ErrAlreadyAssigned and leaves the task untouched.
	AssignIfUnassigned(ctx context.Context, id string, a Assignment) (*Task, error)
}
