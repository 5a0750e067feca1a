// Package events carries domain change notifications from the services to
// the realtime feed and the event stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the services.
const (
	ChatMessageCreated     = "chat.message.created"
	RecordCreated          = "record.created"
	RecordDeleted          = "record.deleted"
	ScreeningResultCreated = "screening.result.created"
	AppointmentCreated     = "appointment.created"
	AppointmentUpdated     = "appointment.updated"
	UserRegistered         = "user.registered"
)

// Event is one change notification. Topic is the realtime feed channel,
// for example "chat/42".
type Event struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId,omitempty"`
	UserID     int64           `json:"userId"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// UserTopic builds the per-user feed topic for a resource family.
func UserTopic(family string, userID int64) string {
	return family + "/" + strconv.FormatInt(userID, 10)
}

// New builds an event whose Data is the JSON encoding of payload.
func New(typ, topic, resource string, userID, resourceID int64, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	ev := Event{
		Type:      typ,
		Topic:     topic,
		Resource:  resource,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if resourceID > 0 {
		ev.ResourceID = strconv.FormatInt(resourceID, 10)
	}
	return ev, nil
}

// Fanout publishes to every member and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type bestEffort struct {
	next   Publisher
	logger zerolog.Logger
}

// BestEffort wraps p so publish failures are logged and never reach the
// caller; a request must not fail because a subscriber is down.
func BestEffort(p Publisher, logger zerolog.Logger) Publisher {
	return &bestEffort{next: p, logger: logger}
}

func (b *bestEffort) Publish(ctx context.Context, event Event) error {
	if err := b.next.Publish(ctx, event); err != nil {
		b.logger.Warn().Err(err).
			Str("type", event.Type).
			Str("topic", event.Topic).
			Msg("event publish failed")
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
