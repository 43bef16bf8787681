package repositoryimpl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const tasksPrefix = "tasks"

type YAMLRepository struct {
	tasks *yamlrepo.Collection[task.Task]
	// assignMu serializes the read-check-write in AssignIfUnassigned.
	assignMu sync.Mutex
	now      func() time.Time
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		tasks: &yamlrepo.Collection[task.Task]{Storage: s, Prefix: tasksPrefix, Target: "task"},
		now:   time.Now,
	}
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	if t.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "task id is required", nil)
	}
	return r.tasks.Create(ctx, t.ID, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	return r.tasks.Get(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	return r.tasks.List(ctx, nil)
}

func (r *YAMLRepository) ListByDate(ctx context.Context, date string) ([]*task.Task, error) {
	return r.tasks.List(ctx, func(t *task.Task) bool {
		return t.ScheduledDate == date
	})
}

func (r *YAMLRepository) AssignIfUnassigned(ctx context.Context, id string, a task.Assignment) (*task.Task, error) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()

	t, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsAssigned() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "task already assigned",
			fmt.Errorf("task %s held by worker %s: %w", id, t.AssignedWorkerID, task.ErrAlreadyAssigned))
	}
	confidence := a.Confidence
	t.AssignedWorkerID = a.WorkerID
	t.AssignedWorkerName = a.WorkerName
	t.AssignmentConfidence = &confidence
	t.AutoAssigned = true
	t.UpdatedAt = r.now()
	if err := r.tasks.Put(ctx, id, t); err != nil {
		return nil, err
	}
	return t, nil
}
