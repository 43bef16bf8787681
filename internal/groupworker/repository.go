package groupworker

import "context"

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	// ListActiveByGroup returns the group's active rows in storage order.
	// Ordering by priority is the caller's job.
	ListActiveByGroup(ctx context.Context, groupID string) ([]*Assignment, error)
}
