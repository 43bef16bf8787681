package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sedeops/autoassign/internal/auditlog"
	"github.com/sedeops/autoassign/internal/eventbus"
	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/clog"
	"github.com/sedeops/autoassign/pkg/panicerr"
)

// ErrInvalidRequest rejects a whole batch; per-task problems never do.
var ErrInvalidRequest = errors.New("taskIds must be an array")

// Scheduler assigns unassigned tasks to the most preferred available worker
// of their property's group.
type Scheduler struct {
	taskRepo        task.Repository
	groupRepo       propertygroup.Repository
	groupWorkerRepo groupworker.Repository
	workerRepo      worker.Repository
	auditRepo       auditlog.Repository
	eventBus        *eventbus.Bus
	now             func() time.Time
}

func NewScheduler(
	taskRepo task.Repository,
	groupRepo propertygroup.Repository,
	groupWorkerRepo groupworker.Repository,
	workerRepo worker.Repository,
	auditRepo auditlog.Repository,
	eventBus *eventbus.Bus,
) *Scheduler {
	return &Scheduler{
		taskRepo:        taskRepo,
		groupRepo:       groupRepo,
		groupWorkerRepo: groupWorkerRepo,
		workerRepo:      workerRepo,
		auditRepo:       auditRepo,
		eventBus:        eventBus,
		now:             time.Now,
	}
}

// RunAutoAssignment attempts every task in order and returns one result per
// id. Tasks are processed one at a time because each attempt reads the
// day's assignments fresh and must see the ones made earlier in the batch.
// Only a nil taskIDs slice is rejected as a whole.
func (s *Scheduler) RunAutoAssignment(ctx context.Context, taskIDs []string) (*BatchResult, error) {
	if taskIDs == nil {
		return nil, cerr.NewError(cerr.InvalidArgument, ErrInvalidRequest.Error(), ErrInvalidRequest).
			AddFieldViolation("taskIds", "required", "taskIds is required")
	}

	results := make([]Result, 0, len(taskIDs))
	for _, id := range taskIDs {
		results = append(results, s.attempt(ctx, id))
	}

	batch := &BatchResult{Results: results, Summary: summarize(results)}
	slog.InfoContext(ctx, "auto-assignment batch finished",
		"total", batch.Summary.Total, "assigned", batch.Summary.Assigned, "failed", batch.Summary.Failed)
	if s.eventBus != nil {
		s.eventBus.PublishNew(ctx, eventbus.AssignmentBatchComplete, "", map[string]string{
			"total":    strconv.Itoa(batch.Summary.Total),
			"assigned": strconv.Itoa(batch.Summary.Assigned),
			"failed":   strconv.Itoa(batch.Summary.Failed),
		})
	}
	return batch, nil
}

// attempt is the per-task boundary: errors and panics below it become an
// UNEXPECTED_ERROR result for this task only.
func (s *Scheduler) attempt(ctx context.Context, taskID string) Result {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "task_id", taskID)

	result, err := panicerr.Try(func() (Result, error) {
		return s.assignTask(ctx, taskID)
	})
	if err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "auto-assignment failed unexpectedly")
		return failedWith(taskID, UnexpectedError, err)
	}

	if !result.Success {
		clog.AddAttribute(ctx, "code", string(result.FailureCode))
	}
	switch {
	case result.Success:
		slog.InfoContext(ctx, "task auto-assigned", "worker_id", result.WorkerID, "confidence", result.Confidence)
	case result.FailureCode == AssignmentPersistenceFailed:
		slog.ErrorContext(ctx, "task assignment not persisted", "reason", result.Reason)
	case result.FailureCode == PropertyNotInGroup:
		slog.DebugContext(ctx, "task not assigned", "reason", result.Reason)
	default:
		slog.InfoContext(ctx, "task not assigned", "reason", result.Reason)
	}
	return result
}

func (s *Scheduler) assignTask(ctx context.Context, taskID string) (Result, error) {
	t, err := s.taskRepo.Get(ctx, taskID)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return failed(taskID, TaskNotFound), nil
		}
		return Result{}, fmt.Errorf("get task: %w", err)
	}
	if t.IsAssigned() {
		return failed(taskID, AlreadyAssigned), nil
	}
	if t.PropertyID == "" {
		return failed(taskID, NoPropertyReference), nil
	}

	membership, err := s.groupRepo.GetMembershipByProperty(ctx, t.PropertyID)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return failed(taskID, PropertyNotInGroup), nil
		}
		return Result{}, fmt.Errorf("get group membership: %w", err)
	}
	group, err := s.groupRepo.GetGroup(ctx, membership.GroupID)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return failed(taskID, PropertyNotInGroup), nil
		}
		return Result{}, fmt.Errorf("get group: %w", err)
	}
	clog.AddAttribute(ctx, "group_id", group.ID)
	if !group.AutoAssignEnabled {
		return failed(taskID, AutoAssignDisabled), nil
	}

	rows, err := s.groupWorkerRepo.ListActiveByGroup(ctx, group.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list group workers: %w", err)
	}
	if len(rows) == 0 {
		return failed(taskID, NoWorkersConfigured), nil
	}
	workers := SortByPriority(rows)

	// Read per task, never cached across the batch.
	dayTasks, err := s.taskRepo.ListByDate(ctx, t.ScheduledDate)
	if err != nil {
		return Result{}, fmt.Errorf("list tasks on %s: %w", t.ScheduledDate, err)
	}

	sel, rejections, err := Select(t, workers, dayTasks)
	if err != nil {
		return Result{}, err
	}
	for _, r := range rejections {
		slog.DebugContext(ctx, "worker skipped", "worker_id", r.WorkerID, "reason", r.Reason)
	}
	if sel == nil {
		return failed(taskID, NoAvailableWorkers), nil
	}

	return s.persist(ctx, taskID, t, group, sel), nil
}

// Results, audit entries and events carry the requested taskID.
func (s *Scheduler) persist(ctx context.Context, taskID string, t *task.Task, group *propertygroup.Group, sel *Selection) Result {
	name := s.workerName(ctx, sel.Worker.WorkerID)

	_, err := s.taskRepo.AssignIfUnassigned(ctx, taskID, task.Assignment{
		WorkerID:   sel.Worker.WorkerID,
		WorkerName: name,
		Confidence: sel.Confidence,
	})
	if err != nil {
		if errors.Is(err, task.ErrAlreadyAssigned) {
			return failed(taskID, AlreadyAssigned)
		}
		clog.AddError(ctx, err)
		return failedWith(taskID, AssignmentPersistenceFailed, err)
	}

	if err := s.auditRepo.Append(ctx, &auditlog.Entry{
		TaskID:           taskID,
		GroupID:          group.ID,
		WorkerID:         sel.Worker.WorkerID,
		Algorithm:        auditlog.AlgorithmPrioritySaturation,
		AlgorithmVersion: auditlog.AlgorithmVersion,
		Reason:           sel.Reason(),
		Confidence:       sel.Confidence,
		ManualOverride:   false,
		CreatedAt:        s.now(),
	}); err != nil {
		// The task keeps its worker; only the trail is missing.
		clog.AddError(ctx, err)
		return failedWith(taskID, AssignmentPersistenceFailed, fmt.Errorf("audit log: %w", err))
	}

	if s.eventBus != nil {
		s.eventBus.PublishNew(ctx, eventbus.TaskAutoAssigned, taskID, map[string]string{
			"worker_id":      sel.Worker.WorkerID,
			"worker_name":    name,
			"group_id":       group.ID,
			"property_id":    t.PropertyID,
			"scheduled_date": t.ScheduledDate,
			"start_time":     t.StartTime,
			"confidence":     strconv.Itoa(sel.Confidence),
		})
	}
	return succeeded(taskID, sel, group.ID, name)
}

// workerName resolves the display name, falling back to the id when the
// directory has no usable entry.
func (s *Scheduler) workerName(ctx context.Context, workerID string) string {
	w, err := s.workerRepo.Get(ctx, workerID)
	if err != nil {
		if !cerr.IsCode(err, cerr.NotFound) {
			slog.WarnContext(ctx, "worker lookup failed, using id as name", "worker_id", workerID, "error", err)
		}
		return workerID
	}
	return w.DisplayName()
}
