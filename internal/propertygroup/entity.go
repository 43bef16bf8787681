package propertygroup

import "time"

// Group clusters properties that share one pool of workers and one
// auto-assignment policy.
type Group struct {
	ID                string    `yaml:"id"`
	Name              string    `yaml:"name"`
	AutoAssignEnabled bool      `yaml:"auto_assign_enabled"`
	CreatedAt         time.Time `yaml:"created_at"`
}

// Membership places a property in a group. A property has at most one.
type Membership struct {
	PropertyID string    `yaml:"property_id"`
	GroupID    string    `yaml:"group_id"`
	CreatedAt  time.Time `yaml:"created_at"`
}
