package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/pkg/cerr"
)

type GroupRepository struct {
	db *DB
}

func (r *GroupRepository) CreateGroup(ctx context.Context, g *propertygroup.Group) error {
	if g.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "group id is required", nil)
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO property_groups (id, name, auto_assign_enabled, created_at) VALUES ($1, $2, $3, $4)`,
		g.ID, g.Name, g.AutoAssignEnabled, g.CreatedAt)
	return wrapError("property group", err)
}

func (r *GroupRepository) GetGroup(ctx context.Context, id string) (*propertygroup.Group, error) {
	var g propertygroup.Group
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, auto_assign_enabled, created_at FROM property_groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.AutoAssignEnabled, &g.CreatedAt)
	if err != nil {
		return nil, wrapError("property group", err)
	}
	return &g, nil
}

func (r *GroupRepository) ListGroups(ctx context.Context) ([]*propertygroup.Group, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, auto_assign_enabled, created_at FROM property_groups ORDER BY id`)
	if err != nil {
		return nil, wrapError("property group", err)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*propertygroup.Group, error) {
		var g propertygroup.Group
		err := row.Scan(&g.ID, &g.Name, &g.AutoAssignEnabled, &g.CreatedAt)
		return &g, err
	})
	return groups, wrapError("property group", err)
}

func (r *GroupRepository) SetMembership(ctx context.Context, m *propertygroup.Membership) error {
	if m.PropertyID == "" || m.GroupID == "" {
		return cerr.NewError(cerr.InvalidArgument, "property id and group id are required", nil)
	}
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO property_group_members (property_id, group_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id) DO UPDATE SET group_id = EXCLUDED.group_id, created_at = EXCLUDED.created_at`,
		m.PropertyID, m.GroupID, m.CreatedAt)
	return wrapError("property group membership", err)
}

func (r *GroupRepository) GetMembershipByProperty(ctx context.Context, propertyID string) (*propertygroup.Membership, error) {
	var m propertygroup.Membership
	err := r.db.Pool.QueryRow(ctx,
		`SELECT property_id, group_id, created_at FROM property_group_members WHERE property_id = $1`, propertyID).
		Scan(&m.PropertyID, &m.GroupID, &m.CreatedAt)
	if err != nil {
		return nil, wrapError("property group membership", err)
	}
	return &m, nil
}

type GroupWorkerRepository struct {
	db *DB
}

func (r *GroupWorkerRepository) Create(ctx context.Context, a *groupworker.Assignment) error {
	if a.GroupID == "" || a.WorkerID == "" {
		return cerr.NewError(cerr.InvalidArgument, "group id and worker id are required", nil)
	}
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO group_worker_assignments
		(id, group_id, worker_id, priority, max_tasks_per_day, travel_buffer_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.GroupID, a.WorkerID, a.Priority, a.MaxTasksPerDay, a.TravelBufferMinutes, a.Active)
	return wrapError("group worker assignment", err)
}

// ListActiveByGroup returns rows in insertion order.
func (r *GroupWorkerRepository) ListActiveByGroup(ctx context.Context, groupID string) ([]*groupworker.Assignment, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, group_id, worker_id, priority, max_tasks_per_day,
		travel_buffer_minutes, active FROM group_worker_assignments
		WHERE group_id = $1 AND active ORDER BY seq`, groupID)
	if err != nil {
		return nil, wrapError("group worker assignment", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*groupworker.Assignment, error) {
		var a groupworker.Assignment
		err := row.Scan(&a.ID, &a.GroupID, &a.WorkerID, &a.Priority, &a.MaxTasksPerDay, &a.TravelBufferMinutes, &a.Active)
		return &a, err
	})
	return out, wrapError("group worker assignment", err)
}
