package queue

import (
	"context"
	"fmt"

	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// EventPublisher sends committed vault events to the event queue, one message
// per event, in emission order.
type EventPublisher struct {
	client client.QueueClient
}

func NewEventPublisher(c client.QueueClient) *EventPublisher {
	return &EventPublisher{client: c}
}

func (p *EventPublisher) Publish(ctx context.Context, evs []types.Event) error {
	for _, ev := range evs {
		body, err := events.Encode(ev)
		if err != nil {
			return err
		}
		if err := p.client.SendMessage(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to publish %s event: %w", ev.GetEventType(), err)
		}
	}
	return nil
}
