package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/google/uuid"
)

const envelopeVersion = 1

// Event is a domain event raised by a cart session.
type Event struct {
	Type       enums.CartEventType
	SessionID  string
	Data       any
	OccurredAt time.Time
}

// Envelope is the stable wire format of published events.
type Envelope struct {
	Version    int                 `json:"version"`
	EventID    string              `json:"event_id"`
	Type       enums.CartEventType `json:"type"`
	SessionID  string              `json:"session_id"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    json.RawMessage     `json:"payload"`
}

// NewEnvelope stamps the event with an id and encodes its payload.
func NewEnvelope(evt Event) (Envelope, error) {
	if !evt.Type.IsValid() {
		return Envelope{}, fmt.Errorf("invalid event type %q", evt.Type)
	}
	payload, err := json.Marshal(evt.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", evt.Type, err)
	}
	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		Type:       evt.Type,
		SessionID:  evt.SessionID,
		OccurredAt: occurred,
		Payload:    payload,
	}, nil
}

// Publisher ships cart events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
