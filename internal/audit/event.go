// Package audit records authentication events to the event store and the
// audit topic. Recording never fails a request; errors are logged only.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSignUp        EventType = "signup"
	EventConfirmSignUp EventType = "confirm_signup"
	EventLogin         EventType = "login"
	EventLoginFailed   EventType = "login_failed"
	EventRefresh       EventType = "refresh"
	EventLogout        EventType = "logout"
	EventPasswordReset EventType = "password_reset"
)

type Event struct {
	ID         string    `json:"id" bson:"_id"`
	Type       EventType `json:"type" bson:"type"`
	Subject    string    `json:"subject,omitempty" bson:"subject,omitempty"`
	Email      string    `json:"email,omitempty" bson:"email,omitempty"`
	Reason     string    `json:"reason,omitempty" bson:"reason,omitempty"`
	RemoteAddr string    `json:"remoteAddr,omitempty" bson:"remoteAddr,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	OccurredAt time.Time `json:"occurredAt" bson:"occurredAt"`
}

// NewEvent stamps an id and time on a new event of type t.
func NewEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: time.Now().UTC()}
}

// key partitions by subject, falling back to email for events before login.
func (e Event) key() string {
	if e.Subject != "" {
		return e.Subject
	}
	return e.Email
}

type Recorder interface {
	Record(ctx context.Context, e Event)
}

type nop struct{}

func (nop) Record(context.Context, Event) {}

// Nop discards every event.
func Nop() Recorder { return nop{} }

type multi []Recorder

func (m multi) Record(ctx context.Context, e Event) {
	for _, r := range m {
		r.Record(ctx, e)
	}
}

// Multi fans an event out to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	var m multi
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	if len(m) == 0 {
		return Nop()
	}
	return m
}
