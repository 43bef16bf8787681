package worker

import "context"

type Repository interface {
	Create(ctx context.Context, w *Worker) error
	Get(ctx context.Context, id string) (*Worker, error)
	List(ctx context.Context) ([]*Worker, error)
}
