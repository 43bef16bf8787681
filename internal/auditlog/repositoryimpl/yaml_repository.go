package repositoryimpl

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/sedeops/autoassign/internal/auditlog"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/storage"
)

const auditLogPrefix = "assignment_audit_log"

type YAMLRepository struct {
	entries *yamlrepo.Collection[auditlog.Entry]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		entries: &yamlrepo.Collection[auditlog.Entry]{Storage: s, Prefix: auditLogPrefix, Target: "audit log entry"},
	}
}

// Append assigns a ULID when the entry has no id. Create refuses to
// overwrite, so an existing entry is never replaced.
func (r *YAMLRepository) Append(ctx context.Context, e *auditlog.Entry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	return r.entries.Create(ctx, e.ID, e)
}

func (r *YAMLRepository) ListByTask(ctx context.Context, taskID string) ([]*auditlog.Entry, error) {
	return r.entries.List(ctx, func(e *auditlog.Entry) bool {
		return e.TaskID == taskID
	})
}
