package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/pkg/cerr"
)

type TaskRepository struct {
	db *DB
}

const taskColumns = `id, property_id, scheduled_date::text, COALESCE(to_char(start_time, 'HH24:MI'), ''),
	COALESCE(to_char(end_time, 'HH24:MI'), ''), assigned_worker_id, assigned_worker_name,
	assignment_confidence, auto_assigned, created_at, updated_at`

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t          task.Task
		workerID   *string
		workerName *string
		confidence *int32
	)
	if err := row.Scan(&t.ID, &t.PropertyID, &t.ScheduledDate, &t.StartTime, &t.EndTime,
		&workerID, &workerName, &confidence, &t.AutoAssigned, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.AssignedWorkerID = deref(workerID)
	t.AssignedWorkerName = deref(workerName)
	if confidence != nil {
		c := int(*confidence)
		t.AssignmentConfidence = &c
	}
	return &t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, sql string, args ...any) ([]*task.Task, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapError("task", err)
	}
	defer rows.Close()
	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, wrapError("task", err)
		}
		out = append(out, t)
	}
	return out, wrapError("task", rows.Err())
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	if t.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "task id is required", nil)
	}
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO tasks (id, property_id, scheduled_date, start_time, end_time,
		assigned_worker_id, assigned_worker_name, assignment_confidence, auto_assigned, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.PropertyID, t.ScheduledDate, nullIfEmpty(t.StartTime), nullIfEmpty(t.EndTime),
		nullIfEmpty(t.AssignedWorkerID), nullIfEmpty(t.AssignedWorkerName), t.AssignmentConfidence,
		t.AutoAssigned, t.CreatedAt, t.UpdatedAt)
	return wrapError("task", err)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	t, err := scanTask(r.db.Pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, wrapError("task", err)
	}
	return t, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]*task.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (r *TaskRepository) ListByDate(ctx context.Context, date string) ([]*task.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE scheduled_date = $1::date ORDER BY id`, date)
}

// AssignIfUnassigned relies on the WHERE clause for atomicity: of two
// concurrent callers only one matches the unassigned row.
func (r *TaskRepository) AssignIfUnassigned(ctx context.Context, id string, a task.Assignment) (*task.Task, error) {
	t, err := scanTask(r.db.Pool.QueryRow(ctx, `UPDATE tasks SET assigned_worker_id = $2, assigned_worker_name = $3,
		assignment_confidence = $4, auto_assigned = TRUE, updated_at = $5
		WHERE id = $1 AND (assigned_worker_id IS NULL OR assigned_worker_id = '')
		RETURNING `+taskColumns,
		id, a.WorkerID, a.WorkerName, a.Confidence, time.Now()))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapError("task", err)
	}
	// No row matched: either the task is missing or someone holds it.
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, cerr.NewError(cerr.FailedPrecondition, "task already assigned",
		fmt.Errorf("task %s: %w", id, task.ErrAlreadyAssigned))
}
