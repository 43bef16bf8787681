package assignment

import "github.com/sedeops/autoassign/internal/task"

// Conflicts reports whether candidate overlaps existing once the worker's
// travel buffer is appended to the end of existing. The buffer applies only
// after existing ends: a candidate that finishes exactly when existing
// starts does not conflict, while one starting less than bufferMinutes after
// existing ends does.
func Conflicts(candidate, existing task.Interval, bufferMinutes int) bool {
	return candidate.Start < existing.End+bufferMinutes && candidate.End > existing.Start
}
