package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventStarted   EventKind = "started"
	EventPhase     EventKind = "phase"
	EventCompleted EventKind = "completed"
	EventExpired   EventKind = "expired"
)

// Event is a session lifecycle notification.
type Event struct {
	Kind      EventKind `json:"event"`
	SessionID uuid.UUID `json:"session_id"`
	Owner     string    `json:"owner"`
	Status    Status    `json:"status"`
	Phase     Phase     `json:"phase"`
	Symptom   string    `json:"detected_symptom,omitempty"`
	At        time.Time `json:"at"`
}

func newEvent(kind EventKind, s *Session) Event {
	return Event{
		Kind:      kind,
		SessionID: s.ID,
		Owner:     s.Owner,
		Status:    s.Status,
		Phase:     s.Phase,
		Symptom:   s.DetectedSymptom,
		At:        time.Now().UTC(),
	}
}

// EventPublisher delivers lifecycle events. Publishing is best effort: the
// service logs failures and carries on.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// NopPublisher discards every event.
func NopPublisher() EventPublisher { return nopPublisher{} }
