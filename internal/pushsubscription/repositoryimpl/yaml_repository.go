package repositoryimpl

import (
	"context"

	"github.com/sedeops/autoassign/internal/pushsubscription"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const pushSubscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	subs *yamlrepo.Collection[pushsubscription.Subscription]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		subs: &yamlrepo.Collection[pushsubscription.Subscription]{Storage: s, Prefix: pushSubscriptionsPrefix, Target: "push subscription"},
	}
}

func (r *YAMLRepository) Create(ctx context.Context, s *pushsubscription.Subscription) error {
	return r.subs.Create(ctx, s.ID, s)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*pushsubscription.Subscription, error) {
	return r.subs.Get(ctx, id)
}

func (r *YAMLRepository) ListByWorker(ctx context.Context, workerID string) ([]*pushsubscription.Subscription, error) {
	return r.subs.List(ctx, func(s *pushsubscription.Subscription) bool {
		return s.WorkerID == workerID
	})
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.subs.Delete(ctx, id)
}

func (r *YAMLRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	all, err := r.subs.List(ctx, func(s *pushsubscription.Subscription) bool {
		return s.Endpoint == endpoint
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, cerr.NewError(cerr.NotFound, "push subscription not found", nil)
	}
	return all[0], nil
}
