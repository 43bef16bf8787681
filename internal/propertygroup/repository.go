package propertygroup

import "context"

type Repository interface {
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	ListGroups(ctx context.Context) ([]*Group, error)
	// SetMembership replaces any existing membership of the property.
	SetMembership(ctx context.Context, m *Membership) error
	// GetMembershipByProperty returns a NotFound cerr.Error when the
	// property belongs to no group.
	GetMembershipByProperty(ctx context.Context, propertyID string) (*Membership, error)
}
