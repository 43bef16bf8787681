package repositoryimpl

import (
	"cmp"
	"context"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const groupWorkersPrefix = "group_worker_assignments"

type YAMLRepository struct {
	rows *yamlrepo.Collection[groupworker.Assignment]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		rows: &yamlrepo.Collection[groupworker.Assignment]{Storage: s, Prefix: groupWorkersPrefix, Target: "group worker assignment"},
	}
}

// Create stamps a.Seq with a monotonic ULID, and a.ID too when it is empty.
func (r *YAMLRepository) Create(ctx context.Context, a *groupworker.Assignment) error {
	if a.GroupID == "" || a.WorkerID == "" {
		return cerr.NewError(cerr.InvalidArgument, "group id and worker id are required", nil)
	}
	seq := ulid.Make().String()
	if a.ID == "" {
		a.ID = seq
	}
	a.Seq = seq
	return r.rows.Create(ctx, a.ID, a)
}

// ListActiveByGroup returns rows in insertion order.
func (r *YAMLRepository) ListActiveByGroup(ctx context.Context, groupID string) ([]*groupworker.Assignment, error) {
	rows, err := r.rows.List(ctx, func(a *groupworker.Assignment) bool {
		return a.Active && a.GroupID == groupID
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b *groupworker.Assignment) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return rows, nil
}
