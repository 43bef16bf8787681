package fixture

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedeops/autoassign/internal/assignment"
	"github.com/sedeops/autoassign/internal/store"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const sample = `
groups:
  - id: g1
    name: Downtown
    auto_assign_enabled: true
memberships:
  - property_id: p1
    group_id: g1
workers:
  - id: w1
    name: Ana
    active: true
group_workers:
  - group_id: g1
    worker_id: w1
    priority: 1
    max_tasks_per_day: 3
    travel_buffer_minutes: 30
    active: true
tasks:
  - id: t1
    property_id: p1
    scheduled_date: "2026-03-01"
    start_time: "10:00"
    end_time: "11:00"
`

func TestParseAndSeed(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, f.GroupWorkers, 1)

	repos := newRepos(t)
	require.NoError(t, f.Seed(ctx, repos))

	g, err := repos.Groups.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, g.AutoAssignEnabled)
	assert.False(t, g.CreatedAt.IsZero())

	m, err := repos.Groups.GetMembershipByProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "g1", m.GroupID)

	rows, err := repos.GroupWorkers.ListActiveByGroup(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "g1-w1", rows[0].ID)
	assert.Equal(t, 30, rows[0].TravelBufferMinutes)

	tk, err := repos.Tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "10:00", tk.StartTime)
	assert.False(t, tk.IsAssigned())
}

func TestSeed_Twice(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	repos := newRepos(t)
	require.NoError(t, f.Seed(ctx, repos))

	err = f.Seed(ctx, repos)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("groups: [\n"))
	require.Error(t, err)
}

func newRepos(t *testing.T) *store.Repositories {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store.NewYAMLRepositories(s)
}

func TestExampleFixture(t *testing.T) {
	data, err := os.ReadFile("../../fixtures/example.yaml")
	require.NoError(t, err)
	f, err := Parse(data)
	require.NoError(t, err)
	require.NoError(t, f.Seed(context.Background(), newRepos(t)))
}

const equalPriority = `
groups:
  - id: g1
    name: Harbour
    auto_assign_enabled: true
memberships:
  - property_id: p1
    group_id: g1
workers:
  - id: zoe
    active: true
  - id: adam
    active: true
group_workers:
  - group_id: g1
    worker_id: zoe
    priority: 1
    max_tasks_per_day: 2
    active: true
  - group_id: g1
    worker_id: adam
    priority: 1
    max_tasks_per_day: 2
    active: true
tasks:
  - id: t1
    property_id: p1
    scheduled_date: "2026-03-01"
    start_time: "10:00"
    end_time: "11:00"
`

func TestSeed_EqualPrioritiesKeepFixtureOrder(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(equalPriority))
	require.NoError(t, err)
	repos := newRepos(t)
	require.NoError(t, f.Seed(ctx, repos))

	rows, err := repos.GroupWorkers.ListActiveByGroup(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "zoe", rows[0].WorkerID)
	assert.Equal(t, "adam", rows[1].WorkerID)

	scheduler := assignment.NewScheduler(repos.Tasks, repos.Groups, repos.GroupWorkers, repos.Workers, repos.AuditLog, nil)
	batch, err := scheduler.RunAutoAssignment(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, "zoe", batch.Results[0].WorkerID)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	repos := newRepos(t)
	require.NoError(t, f.Seed(ctx, repos))

	out, err := Export(ctx, repos, "")
	require.NoError(t, err)
	require.Len(t, out.Groups, 1)
	assert.Equal(t, "g1", out.Groups[0].ID)
	require.Len(t, out.Workers, 1)
	assert.Equal(t, "w1", out.Workers[0].ID)
	require.Len(t, out.GroupWorkers, 1)
	assert.Equal(t, "w1", out.GroupWorkers[0].WorkerID)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "t1", out.Tasks[0].ID)

	out, err = Export(ctx, repos, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, out.Tasks)
	assert.Len(t, out.Groups, 1)
}
