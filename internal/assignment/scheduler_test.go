package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedeops/autoassign/internal/auditlog"
	"github.com/sedeops/autoassign/internal/eventbus"
	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/internal/store"
	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

const day = "2026-03-01"

type fixtureBuilder struct {
	t     *testing.T
	ctx   context.Context
	repos *store.Repositories
}

func newFixture(t *testing.T) *fixtureBuilder {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &fixtureBuilder{t: t, ctx: context.Background(), repos: store.NewYAMLRepositories(s)}
}

func (f *fixtureBuilder) group(id string, enabled bool, propertyIDs ...string) {
	f.t.Helper()
	require.NoError(f.t, f.repos.Groups.CreateGroup(f.ctx, &propertygroup.Group{ID: id, Name: id, AutoAssignEnabled: enabled}))
	for _, p := range propertyIDs {
		require.NoError(f.t, f.repos.Groups.SetMembership(f.ctx, &propertygroup.Membership{PropertyID: p, GroupID: id}))
	}
}

func (f *fixtureBuilder) worker(groupID, workerID string, priority, maxPerDay, buffer int) {
	f.t.Helper()
	require.NoError(f.t, f.repos.Workers.Create(f.ctx, &worker.Worker{ID: workerID, Name: "Worker " + workerID, Active: true}))
	f.row(groupID, workerID, priority, maxPerDay, buffer, true)
}

func (f *fixtureBuilder) row(groupID, workerID string, priority, maxPerDay, buffer int, active bool) {
	f.t.Helper()
	require.NoError(f.t, f.repos.GroupWorkers.Create(f.ctx, &groupworker.Assignment{
		ID:                  groupID + "-" + workerID,
		GroupID:             groupID,
		WorkerID:            workerID,
		Priority:            priority,
		MaxTasksPerDay:      maxPerDay,
		TravelBufferMinutes: buffer,
		Active:              active,
	}))
}

func (f *fixtureBuilder) task(id, propertyID, start, end, workerID string) {
	f.t.Helper()
	require.NoError(f.t, f.repos.Tasks.Create(f.ctx, &task.Task{
		ID:               id,
		PropertyID:       propertyID,
		ScheduledDate:    day,
		StartTime:        start,
		EndTime:          end,
		AssignedWorkerID: workerID,
	}))
}

func (f *fixtureBuilder) scheduler(bus *eventbus.Bus) *Scheduler {
	r := f.repos
	s := NewScheduler(r.Tasks, r.Groups, r.GroupWorkers, r.Workers, r.AuditLog, bus)
	s.now = func() time.Time { return time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestRunAutoAssignment_BufferFallsThroughToSecondWorker(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1", "p0")
	f.worker("g1", "w1", 1, 2, 30)
	f.worker("g1", "w2", 2, 2, 30)
	f.task("t0", "p0", "09:00", "10:00", "w1")
	f.task("t1", "p1", "10:15", "11:00", "")

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	r := batch.Results[0]
	assert.True(t, r.Success)
	assert.Equal(t, "w2", r.WorkerID)
	assert.Equal(t, "Worker w2", r.WorkerName)
	assert.Equal(t, "g1", r.GroupID)
	assert.Equal(t, 802, r.Confidence)
	assert.Equal(t, Summary{Total: 1, Assigned: 1, Failed: 0}, batch.Summary)

	stored, err := f.repos.Tasks.Get(f.ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "w2", stored.AssignedWorkerID)
	assert.Equal(t, "Worker w2", stored.AssignedWorkerName)
	assert.True(t, stored.AutoAssigned)
	require.NotNil(t, stored.AssignmentConfidence)
	assert.Equal(t, 802, *stored.AssignmentConfidence)

	entries, err := f.repos.AuditLog.ListByTask(f.ctx, "t1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "g1", e.GroupID)
	assert.Equal(t, "w2", e.WorkerID)
	assert.Equal(t, auditlog.AlgorithmPrioritySaturation, e.Algorithm)
	assert.Equal(t, auditlog.AlgorithmVersion, e.AlgorithmVersion)
	assert.Equal(t, 802, e.Confidence)
	assert.False(t, e.ManualOverride)
	assert.Equal(t, "priority 2 worker with 0/2 tasks that day", e.Reason)
}

func TestRunAutoAssignment_SaturatesWithinBatch(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 1, 0)
	f.worker("g1", "w2", 2, 1, 0)
	f.task("t1", "p1", "08:00", "09:00", "")
	f.task("t2", "p1", "13:00", "14:00", "")
	f.task("t3", "p1", "17:00", "18:00", "")

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)

	assert.Equal(t, "w1", batch.Results[0].WorkerID)
	assert.Equal(t, 901, batch.Results[0].Confidence)
	assert.Equal(t, "w2", batch.Results[1].WorkerID)
	assert.Equal(t, 801, batch.Results[1].Confidence)
	assert.False(t, batch.Results[2].Success)
	assert.Equal(t, NoAvailableWorkers, batch.Results[2].FailureCode)
	assert.Equal(t, Summary{Total: 3, Assigned: 2, Failed: 1}, batch.Summary)
}

func TestRunAutoAssignment_FailureCodes(t *testing.T) {
	f := newFixture(t)
	f.group("enabled", true, "p-ok", "p-full")
	f.group("disabled", false, "p-off")
	f.group("empty", true, "p-empty")
	f.group("inactive", true, "p-inactive")
	f.worker("enabled", "w1", 1, 1, 0)
	f.row("inactive", "w1", 1, 5, 0, false)
	require.NoError(t, f.repos.Groups.SetMembership(f.ctx, &propertygroup.Membership{PropertyID: "p-orphan", GroupID: "deleted"}))

	f.task("assigned", "p-ok", "08:00", "09:00", "w9")
	f.task("no-property", "", "08:00", "09:00", "")
	f.task("no-group", "p-nowhere", "08:00", "09:00", "")
	f.task("orphan", "p-orphan", "08:00", "09:00", "")
	f.task("off", "p-off", "08:00", "09:00", "")
	f.task("empty", "p-empty", "08:00", "09:00", "")
	f.task("inactive", "p-inactive", "08:00", "09:00", "")
	f.task("busy", "p-full", "10:00", "11:00", "w1")
	f.task("full", "p-full", "12:00", "13:00", "")

	ids := []string{"missing", "assigned", "no-property", "no-group", "orphan", "off", "empty", "inactive", "full"}
	want := []FailureCode{
		TaskNotFound, AlreadyAssigned, NoPropertyReference, PropertyNotInGroup, PropertyNotInGroup,
		AutoAssignDisabled, NoWorkersConfigured, NoWorkersConfigured, NoAvailableWorkers,
	}

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, ids)
	require.NoError(t, err)
	require.Len(t, batch.Results, len(ids))
	for i, r := range batch.Results {
		assert.Equal(t, ids[i], r.TaskID)
		assert.False(t, r.Success, ids[i])
		assert.Equal(t, want[i], r.FailureCode, ids[i])
		assert.Equal(t, want[i].Message(), r.Reason, ids[i])
		assert.Empty(t, r.WorkerID, ids[i])
	}
	assert.Equal(t, Summary{Total: len(ids), Assigned: 0, Failed: len(ids)}, batch.Summary)

	entries, err := f.repos.AuditLog.ListByTask(f.ctx, "full")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunAutoAssignment_RepeatedIDIsAlreadyAssigned(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 3, 0)
	f.task("t1", "p1", "08:00", "09:00", "")

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1", "t1"})
	require.NoError(t, err)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, AlreadyAssigned, batch.Results[1].FailureCode)

	// A second run leaves the stored assignment alone.
	again, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, AlreadyAssigned, again.Results[0].FailureCode)
	entries, err := f.repos.AuditLog.ListByTask(f.ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunAutoAssignment_NotInGroupIsRepeatable(t *testing.T) {
	f := newFixture(t)
	f.task("t1", "p1", "08:00", "09:00", "")
	s := f.scheduler(nil)

	for range 2 {
		batch, err := s.RunAutoAssignment(f.ctx, []string{"t1"})
		require.NoError(t, err)
		assert.Equal(t, PropertyNotInGroup, batch.Results[0].FailureCode)
	}
	stored, err := f.repos.Tasks.Get(f.ctx, "t1")
	require.NoError(t, err)
	assert.False(t, stored.IsAssigned())
}

func TestRunAutoAssignment_EmptyAndInvalid(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(nil)

	batch, err := s.RunAutoAssignment(f.ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.NotNil(t, batch.Results)
	assert.Equal(t, Summary{}, batch.Summary)

	_, err = s.RunAutoAssignment(f.ctx, nil)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

type panickingTasks struct {
	task.Repository
}

func (p *panickingTasks) Get(ctx context.Context, id string) (*task.Task, error) {
	if id == "boom" {
		panic("storage exploded")
	}
	return p.Repository.Get(ctx, id)
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, *auditlog.Entry) error {
	return errors.New("disk full")
}

func (failingAudit) ListByTask(context.Context, string) ([]*auditlog.Entry, error) {
	return nil, nil
}

func TestRunAutoAssignment_PanicIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 3, 0)
	f.task("t1", "p1", "08:00", "09:00", "")

	r := f.repos
	s := NewScheduler(&panickingTasks{Repository: r.Tasks}, r.Groups, r.GroupWorkers, r.Workers, r.AuditLog, nil)
	batch, err := s.RunAutoAssignment(f.ctx, []string{"boom", "t1"})
	require.NoError(t, err)

	assert.Equal(t, UnexpectedError, batch.Results[0].FailureCode)
	assert.Contains(t, batch.Results[0].Reason, "storage exploded")
	assert.True(t, batch.Results[1].Success)
	assert.Equal(t, Summary{Total: 2, Assigned: 1, Failed: 1}, batch.Summary)
}

func TestRunAutoAssignment_AuditFailure(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 3, 0)
	f.task("t1", "p1", "08:00", "09:00", "")

	r := f.repos
	s := NewScheduler(r.Tasks, r.Groups, r.GroupWorkers, r.Workers, failingAudit{}, nil)
	batch, err := s.RunAutoAssignment(f.ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, AssignmentPersistenceFailed, batch.Results[0].FailureCode)
	assert.Contains(t, batch.Results[0].Reason, "disk full")
}

func TestRunAutoAssignment_PublishesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 3, 15)
	f.task("t1", "p1", "08:00", "09:00", "")

	bus := eventbus.New()
	defer bus.Close()
	assigned, err := bus.Subscribe(ctx, eventbus.TaskAutoAssigned)
	require.NoError(t, err)
	completed, err := bus.Subscribe(ctx, eventbus.AssignmentBatchComplete)
	require.NoError(t, err)

	_, err = f.scheduler(bus).RunAutoAssignment(f.ctx, []string{"t1"})
	require.NoError(t, err)

	select {
	case ev := <-assigned:
		assert.Equal(t, "t1", ev.ResourceID)
		assert.Equal(t, "w1", ev.Metadata["worker_id"])
		assert.Equal(t, "g1", ev.Metadata["group_id"])
		assert.Equal(t, day, ev.Metadata["scheduled_date"])
		assert.Equal(t, "903", ev.Metadata["confidence"])
	case <-ctx.Done():
		t.Fatal("task.auto_assigned not delivered")
	}
	select {
	case ev := <-completed:
		assert.Equal(t, "1", ev.Metadata["assigned"])
		assert.Equal(t, "0", ev.Metadata["failed"])
	case <-ctx.Done():
		t.Fatal("assignment.batch_completed not delivered")
	}
}

func TestRunAutoAssignment_MissingTaskDoesNotStopBatch(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 5, 0)
	f.task("t1", "p1", "08:00", "09:00", "")
	f.task("t3", "p1", "10:00", "11:00", "")

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, TaskNotFound, batch.Results[1].FailureCode)
	assert.True(t, batch.Results[2].Success)
	assert.Equal(t, 904, batch.Results[2].Confidence)
}

func TestRunAutoAssignment_OverlappingTasksSpreadAcrossWorkers(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1", "p2")
	f.worker("g1", "w1", 1, 5, 0)
	f.worker("g1", "w2", 2, 5, 0)
	f.task("t1", "p1", "10:00", "11:00", "")
	f.task("t2", "p2", "10:30", "11:30", "")

	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, "w1", batch.Results[0].WorkerID)
	assert.Equal(t, "w2", batch.Results[1].WorkerID)
}

func TestRunAutoAssignment_PathLikeIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	f.group("g1", true, "p1")
	f.worker("g1", "w1", 1, 3, 0)
	f.task("t1", "p1", "10:00", "11:00", "")

	ids := []string{"../workers/w1", "x/../t1", `x\..\t1`, "..", ""}
	batch, err := f.scheduler(nil).RunAutoAssignment(f.ctx, ids)
	require.NoError(t, err)
	require.Len(t, batch.Results, len(ids))
	for i, r := range batch.Results {
		assert.Equal(t, ids[i], r.TaskID)
		assert.False(t, r.Success, ids[i])
		assert.Equal(t, TaskNotFound, r.FailureCode, ids[i])
	}

	stored, err := f.repos.Tasks.Get(f.ctx, "t1")
	require.NoError(t, err)
	assert.False(t, stored.IsAssigned())
}
