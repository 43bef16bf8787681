package auditlog

import "time"

const (
	AlgorithmPrioritySaturation = "priority_saturation"
	AlgorithmVersion            = "v1"
)

// Entry records one automatic assignment. Entries are append-only.
type Entry struct {
	ID               string    `yaml:"id"`
	TaskID           string    `yaml:"task_id"`
	GroupID          string    `yaml:"group_id"`
	WorkerID         string    `yaml:"worker_id"`
	Algorithm        string    `yaml:"algorithm"`
	AlgorithmVersion string    `yaml:"algorithm_version"`
	Reason           string    `yaml:"reason"`
	Confidence       int       `yaml:"confidence"`
	ManualOverride   bool      `yaml:"manual_override"`
	CreatedAt        time.Time `yaml:"created_at"`
}
