package pushsubscription

import "time"

// Subscription is a Web Push endpoint registered by a worker's device.
type Subscription struct {
	ID        string    `yaml:"id"`
	WorkerID  string    `yaml:"worker_id"`
	Endpoint  string    `yaml:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key"`
	CreatedAt time.Time `yaml:"created_at"`
}
