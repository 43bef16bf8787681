package assignment

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/task"
)

const baseConfidence = 1000

// Selection is the worker chosen for a task together with the load figures
// the confidence score was computed from.
type Selection struct {
	Worker       *groupworker.Assignment
	CurrentCount int
	Confidence   int
}

func (s *Selection) Reason() string {
	return fmt.Sprintf("priority %d worker with %d/%d tasks that day",
		s.Worker.Priority, s.CurrentCount, s.Worker.MaxTasksPerDay)
}

// Confidence rewards preferred (low) priority and remaining capacity.
func Confidence(priority, maxTasksPerDay, currentCount int) int {
	return baseConfidence - priority*100 + (maxTasksPerDay - currentCount)
}

// SortByPriority returns a copy of workers ordered by ascending priority.
// Workers with equal priority keep their relative order.
func SortByPriority(workers []*groupworker.Assignment) []*groupworker.Assignment {
	sorted := slices.Clone(workers)
	slices.SortStableFunc(sorted, func(a, b *groupworker.Assignment) int {
		return a.Priority - b.Priority
	})
	return sorted
}

// Rejection explains why a worker was passed over; it is used for debug
// logging only.
type Rejection struct {
	WorkerID string
	Reason   string
}

// Select walks workers in the given order and returns the first one who has
// spare capacity on the candidate's day and no time conflict with any of
// their same-day tasks. dayTasks must hold every task on the candidate's
// date. Selection is nil when nobody qualifies.
func Select(candidate *task.Task, workers []*groupworker.Assignment, dayTasks []*task.Task) (*Selection, []Rejection, error) {
	candidateIv, hasInterval, err := candidate.Interval()
	if err != nil {
		return nil, nil, err
	}

	var rejections []Rejection
	for _, w := range workers {
		own := workerTasks(w.WorkerID, candidate.ID, dayTasks)
		if len(own) >= w.MaxTasksPerDay {
			rejections = append(rejections, Rejection{
				WorkerID: w.WorkerID,
				Reason:   fmt.Sprintf("at capacity (%d/%d)", len(own), w.MaxTasksPerDay),
			})
			continue
		}
		if hasInterval {
			if clash := firstConflict(candidateIv, own, w.TravelBufferMinutes); clash != nil {
				rejections = append(rejections, Rejection{
					WorkerID: w.WorkerID,
					Reason:   fmt.Sprintf("conflicts with task %s (buffer %dm)", clash.ID, w.TravelBufferMinutes),
				})
				continue
			}
		}
		return &Selection{
			Worker:       w,
			CurrentCount: len(own),
			Confidence:   Confidence(w.Priority, w.MaxTasksPerDay, len(own)),
		}, rejections, nil
	}
	return nil, rejections, nil
}

func workerTasks(workerID, excludeTaskID string, dayTasks []*task.Task) []*task.Task {
	var own []*task.Task
	for _, t := range dayTasks {
		if t.AssignedWorkerID == workerID && t.ID != excludeTaskID {
			own = append(own, t)
		}
	}
	return own
}

// firstConflict returns the first existing task that clashes with the
// candidate. Tasks without usable times cannot clash; they still count
// toward capacity.
func firstConflict(candidate task.Interval, existing []*task.Task, bufferMinutes int) *task.Task {
	for _, t := range existing {
		iv, ok, err := t.Interval()
		if err != nil {
			slog.Warn("ignoring task with malformed times in conflict check", "task_id", t.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if Conflicts(candidate, iv, bufferMinutes) {
			return t
		}
	}
	return nil
}
