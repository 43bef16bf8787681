package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sedeops/autoassign/internal/eventbus"
)

// Dispatcher tells workers about tasks the engine assigned to them.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
	}
}

// Start blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	events, err := d.eventBus.Subscribe(ctx, eventbus.TaskAutoAssigned)
	if err != nil {
		slog.Error("push notification dispatcher failed to subscribe", "error", err)
		return
	}

	slog.Info("push notification dispatcher started")
	for event := range events {
		d.handleTaskAutoAssigned(ctx, event)
	}
	slog.Info("push notification dispatcher stopped")
}

func (d *Dispatcher) handleTaskAutoAssigned(ctx context.Context, event *eventbus.Event) {
	workerID := event.Metadata["worker_id"]
	if workerID == "" {
		slog.WarnContext(ctx, "push dispatcher: assignment event without worker", "task_id", event.ResourceID)
		return
	}
	d.sender.SendToWorker(ctx, workerID, assignmentPayload(event))
}

func assignmentPayload(event *eventbus.Event) *NotificationPayload {
	body := "A task was assigned to you"
	if date := event.Metadata["scheduled_date"]; date != "" {
		body = fmt.Sprintf("A task was assigned to you on %s", date)
		if start := event.Metadata["start_time"]; start != "" {
			body += " at " + start
		}
	}
	return &NotificationPayload{
		Title: "New task assigned",
		Body:  body,
		URL:   fmt.Sprintf("/tasks/%s", event.ResourceID),
		Tag:   "task-" + event.ResourceID,
	}
}
