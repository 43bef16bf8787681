package repositoryimpl

import (
	"context"

	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/internal/yamlrepo"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const (
	groupsPrefix      = "property_groups"
	membershipsPrefix = "property_group_members"
)

type YAMLRepository struct {
	groups      *yamlrepo.Collection[propertygroup.Group]
	memberships *yamlrepo.Collection[propertygroup.Membership]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		groups:      &yamlrepo.Collection[propertygroup.Group]{Storage: s, Prefix: groupsPrefix, Target: "property group"},
		memberships: &yamlrepo.Collection[propertygroup.Membership]{Storage: s, Prefix: membershipsPrefix, Target: "property group membership"},
	}
}

func (r *YAMLRepository) CreateGroup(ctx context.Context, g *propertygroup.Group) error {
	if g.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "group id is required", nil)
	}
	return r.groups.Create(ctx, g.ID, g)
}

func (r *YAMLRepository) GetGroup(ctx context.Context, id string) (*propertygroup.Group, error) {
	return r.groups.Get(ctx, id)
}

func (r *YAMLRepository) ListGroups(ctx context.Context) ([]*propertygroup.Group, error) {
	return r.groups.List(ctx, nil)
}

// Memberships are keyed by property id, so a second SetMembership moves the
// property instead of adding it to two groups.
func (r *YAMLRepository) SetMembership(ctx context.Context, m *propertygroup.Membership) error {
	if m.PropertyID == "" || m.GroupID == "" {
		return cerr.NewError(cerr.InvalidArgument, "property id and group id are required", nil)
	}
	return r.memberships.Put(ctx, m.PropertyID, m)
}

func (r *YAMLRepository) GetMembershipByProperty(ctx context.Context, propertyID string) (*propertygroup.Membership, error) {
	return r.memberships.Get(ctx, propertyID)
}
