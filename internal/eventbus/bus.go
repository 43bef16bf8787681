package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	TaskAutoAssigned        EventType = "task.auto_assigned"
	AssignmentBatchComplete EventType = "assignment.batch_completed"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resource_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Bus is an in-process pub/sub over watermill's go channel transport.
// Events published while nobody is subscribed are dropped.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func New() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishNew builds and publishes an event. Failures are logged, not
// returned: events are informational and must not fail the caller.
func (b *Bus) PublishNew(ctx context.Context, eventType EventType, resourceID string, metadata map[string]string) {
	event := &Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
	if err := b.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", eventType, "resource_id", resourceID, "error", err)
	}
}

// Subscribe delivers events of eventType until ctx is cancelled, after
// which the returned channel is closed.
func (b *Bus) Subscribe(ctx context.Context, eventType EventType) (<-chan *Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
	}
	out := make(chan *Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				slog.Error("dropping undecodable event", "topic", eventType, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
