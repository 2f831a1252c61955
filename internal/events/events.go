// Package events collects the events a transition emits. They are published
// only after the transition commits.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type recorderKey struct{}

type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// WithRecorder returns a ctx whose emitted events land in the returned recorder.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, r), r
}

func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}

// Emit records ev on the ctx recorder. Without one the event is only logged.
func Emit(ctx context.Context, ev types.Event) {
	r := FromContext(ctx)
	if r == nil {
		log.Ctx(ctx).Debug().Str("eventType", string(ev.GetEventType())).Msg("event emitted without recorder")
		return
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event{}, r.events...)
}

// Reset drops everything recorded so far, used when a transition is retried.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type Publisher interface {
	Publish(ctx context.Context, events []types.Event) error
}

// Envelope is the wire form of a published event.
type Envelope struct {
	EventType types.EventType `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func Encode(ev types.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{EventType: ev.GetEventType(), Payload: payload})
}

// LogPublisher writes events to the service log. It is used when no event
// queue is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, evs []types.Event) error {
	for _, ev := range evs {
		body, err := Encode(ev)
		if err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("eventType", string(ev.GetEventType())).RawJSON("event", body).Msg("vault event")
	}
	return nil
}
