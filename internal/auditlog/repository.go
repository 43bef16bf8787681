package auditlog

import "context"

// Repository is append-only; entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByTask(ctx context.Context, taskID string) ([]*Entry, error)
}
