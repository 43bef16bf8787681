package worker

import "time"

type Worker struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Email     string    `yaml:"email"`
	Active    bool      `yaml:"active"`
	CreatedAt time.Time `yaml:"created_at"`
}

// DisplayName falls back to the id for workers without a name.
func (w *Worker) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.ID
}
