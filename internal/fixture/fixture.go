// Package fixture loads seed data for local runs and tests.
package fixture

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/internal/store"
	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/internal/worker"
)

type Fixture struct {
	Groups       []*propertygroup.Group      `yaml:"groups"`
	Memberships  []*propertygroup.Membership `yaml:"memberships"`
	Workers      []*worker.Worker            `yaml:"workers"`
	GroupWorkers []*groupworker.Assignment   `yaml:"group_workers"`
	Tasks        []*task.Task                `yaml:"tasks"`
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Seed writes every record of f into repos. Records that already exist make
// Seed fail; it does not roll back what it has written.
func (f *Fixture) Seed(ctx context.Context, repos *store.Repositories) error {
	now := time.Now()
	for _, g := range f.Groups {
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		if err := repos.Groups.CreateGroup(ctx, g); err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
	}
	for _, m := range f.Memberships {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if err := repos.Groups.SetMembership(ctx, m); err != nil {
			return fmt.Errorf("membership %s: %w", m.PropertyID, err)
		}
	}
	for _, w := range f.Workers {
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if err := repos.Workers.Create(ctx, w); err != nil {
			return fmt.Errorf("worker %s: %w", w.ID, err)
		}
	}
	for i, a := range f.GroupWorkers {
		if a.ID == "" {
			a.ID = fmt.Sprintf("%s-%s", a.GroupID, a.WorkerID)
		}
		if err := repos.GroupWorkers.Create(ctx, a); err != nil {
			return fmt.Errorf("group_workers[%d]: %w", i, err)
		}
	}
	for _, t := range f.Tasks {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		if err := repos.Tasks.Create(ctx, t); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
	}
	return nil
}

// Export reads groups with their active workers, the worker directory and
// tasks back out of repos. A non-empty date limits tasks to that day.
// Memberships are not listed.
func Export(ctx context.Context, repos *store.Repositories, date string) (*Fixture, error) {
	groups, err := repos.Groups.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	f := &Fixture{Groups: groups}
	for _, g := range groups {
		rows, err := repos.GroupWorkers.ListActiveByGroup(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("list workers of group %s: %w", g.ID, err)
		}
		f.GroupWorkers = append(f.GroupWorkers, rows...)
	}
	if f.Workers, err = repos.Workers.List(ctx); err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	if date == "" {
		f.Tasks, err = repos.Tasks.List(ctx)
	} else {
		f.Tasks, err = repos.Tasks.ListByDate(ctx, date)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return f, nil
}
