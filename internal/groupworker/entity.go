package groupworker

// Assignment makes a worker eligible for a group's tasks. Lower Priority is
// preferred; MaxTasksPerDay caps the worker's same-day load across all
// groups; TravelBufferMinutes is kept free after each of the worker's
// existing tasks.
type Assignment struct {
	ID                  string `yaml:"id"`
	GroupID             string `yaml:"group_id"`
	WorkerID            string `yaml:"worker_id"`
	Priority            int    `yaml:"priority"`
	MaxTasksPerDay      int    `yaml:"max_tasks_per_day"`
	TravelBufferMinutes int    `yaml:"travel_buffer_minutes"`
	Active              bool   `yaml:"active"`
	// Seq is stamped by the YAML repository on Create and orders rows by
	// insertion there; PostgreSQL keeps its own sequence column. Equal
	// priorities are tried in insertion order.
	Seq string `yaml:"seq,omitempty"`
}
