package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/sedeops/autoassign/internal/auditlog"
	"github.com/sedeops/autoassign/internal/pushsubscription"
	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/pkg/cerr"
)

type WorkerRepository struct {
	db *DB
}

func (r *WorkerRepository) Create(ctx context.Context, w *worker.Worker) error {
	if w.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "worker id is required", nil)
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO workers (id, name, email, active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Name, w.Email, w.Active, w.CreatedAt)
	return wrapError("worker", err)
}

func scanWorker(row pgx.Row) (*worker.Worker, error) {
	var w worker.Worker
	if err := row.Scan(&w.ID, &w.Name, &w.Email, &w.Active, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkerRepository) Get(ctx context.Context, id string) (*worker.Worker, error) {
	w, err := scanWorker(r.db.Pool.QueryRow(ctx,
		`SELECT id, name, email, active, created_at FROM workers WHERE id = $1`, id))
	if err != nil {
		return nil, wrapError("worker", err)
	}
	return w, nil
}

func (r *WorkerRepository) List(ctx context.Context) ([]*worker.Worker, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, email, active, created_at FROM workers ORDER BY id`)
	if err != nil {
		return nil, wrapError("worker", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*worker.Worker, error) {
		return scanWorker(row)
	})
	return out, wrapError("worker", err)
}

type AuditLogRepository struct {
	db *DB
}

func (r *AuditLogRepository) Append(ctx context.Context, e *auditlog.Entry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO assignment_audit_log (id, task_id, group_id, worker_id,
		algorithm, algorithm_version, reason, confidence, manual_override, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TaskID, e.GroupID, e.WorkerID, e.Algorithm, e.AlgorithmVersion, e.Reason,
		e.Confidence, e.ManualOverride, e.CreatedAt)
	return wrapError("audit log entry", err)
}

func (r *AuditLogRepository) ListByTask(ctx context.Context, taskID string) ([]*auditlog.Entry, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, task_id, group_id, worker_id, algorithm, algorithm_version,
		reason, confidence, manual_override, created_at FROM assignment_audit_log
		WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, wrapError("audit log entry", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*auditlog.Entry, error) {
		var e auditlog.Entry
		err := row.Scan(&e.ID, &e.TaskID, &e.GroupID, &e.WorkerID, &e.Algorithm, &e.AlgorithmVersion,
			&e.Reason, &e.Confidence, &e.ManualOverride, &e.CreatedAt)
		return &e, err
	})
	return out, wrapError("audit log entry", err)
}

type PushSubscriptionRepository struct {
	db *DB
}

const subscriptionColumns = `id, worker_id, endpoint, p256dh_key, auth_key, created_at`

func scanSubscription(row pgx.Row) (*pushsubscription.Subscription, error) {
	var s pushsubscription.Subscription
	if err := row.Scan(&s.ID, &s.WorkerID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PushSubscriptionRepository) Create(ctx context.Context, s *pushsubscription.Subscription) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO push_subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.WorkerID, s.Endpoint, s.P256dhKey, s.AuthKey, s.CreatedAt)
	return wrapError("push subscription", err)
}

func (r *PushSubscriptionRepository) Get(ctx context.Context, id string) (*pushsubscription.Subscription, error) {
	s, err := scanSubscription(r.db.Pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE id = $1`, id))
	if err != nil {
		return nil, wrapError("push subscription", err)
	}
	return s, nil
}

func (r *PushSubscriptionRepository) ListByWorker(ctx context.Context, workerID string) ([]*pushsubscription.Subscription, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE worker_id = $1 ORDER BY id`, workerID)
	if err != nil {
		return nil, wrapError("push subscription", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*pushsubscription.Subscription, error) {
		return scanSubscription(row)
	})
	return out, wrapError("push subscription", err)
}

func (r *PushSubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	return requireRow("push subscription", tag, err)
}

func (r *PushSubscriptionRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	s, err := scanSubscription(r.db.Pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE endpoint = $1`, endpoint))
	if err != nil {
		return nil, wrapError("push subscription", err)
	}
	return s, nil
}
