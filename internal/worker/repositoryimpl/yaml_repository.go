package repositoryimpl

import (
	"context"

	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const workersPrefix = "workers"

type YAMLRepository struct {
	workers *yamlrepo.Collection[worker.Worker]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		workers: &yamlrepo.Collection[worker.Worker]{Storage: s, Prefix: workersPrefix, Target: "worker"},
	}
}

func (r *YAMLRepository) Create(ctx context.Context, w *worker.Worker) error {
	if w.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "worker id is required", nil)
	}
	return r.workers.Create(ctx, w.ID, w)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*worker.Worker, error) {
	return r.workers.Get(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context) ([]*worker.Worker, error) {
	return r.workers.List(ctx, nil)
}
