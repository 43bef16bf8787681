package task

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// Task is a scheduled cleaning job at a property. A task with a non-empty
// AssignedWorkerID is owned by that worker and is never reassigned by the
// auto-assignment engine.
type Task struct {
	ID                   string    `yaml:"id"`
	PropertyID           string    `yaml:"property_id"`
	ScheduledDate        string    `yaml:"scheduled_date"`
	StartTime            string    `yaml:"start_time"`
	EndTime              string    `yaml:"end_time"`
	AssignedWorkerID     string    `yaml:"assigned_worker_id"`
	AssignedWorkerName   string    `yaml:"assigned_worker_name"`
	AssignmentConfidence *int      `yaml:"assignment_confidence,omitempty"`
	AutoAssigned         bool      `yaml:"auto_assigned"`
	CreatedAt            time.Time `yaml:"created_at"`
	UpdatedAt            time.Time `yaml:"updated_at"`
}

func (t *Task) IsAssigned() bool {
	return t.AssignedWorkerID != ""
}

// Interval is a half-open span [Start, End) in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Interval parses StartTime and EndTime. ok is false when either is empty;
// a malformed value is an error.
func (t *Task) Interval() (iv Interval, ok bool, err error) {
	if t.StartTime == "" || t.EndTime == "" {
		return Interval{}, false, nil
	}
	start, err := ParseClock(t.StartTime)
	if err != nil {
		return Interval{}, false, fmt.Errorf("task %s: start time: %w", t.ID, err)
	}
	end, err := ParseClock(t.EndTime)
	if err != nil {
		return Interval{}, false, fmt.Errorf("task %s: end time: %w", t.ID, err)
	}
	return Interval{Start: start, End: end}, true, nil
}

// ParseClock converts "HH:MM" or "HH:MM:SS" to minutes since midnight.
// Seconds are truncated.
func ParseClock(s string) (int, error) {
	for _, layout := range clockLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Hour()*60 + ts.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q", s)
}

// Assignment is the set of fields the engine writes when it assigns a task.
type Assignment struct {
	WorkerID   string
	WorkerName string
	Confidence int
}
