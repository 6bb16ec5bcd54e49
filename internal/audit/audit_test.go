package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key     string
	value   []byte
	headers map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{key: key, value: value, headers: headers})
	return nil
}

func (f *fakePublisher) Topic() string { return "auth.audit" }

type captureRecorder struct {
	events []Event
}

func (c *captureRecorder) Record(_ context.Context, e Event) {
	c.events = append(c.events, e)
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventLogin)
	b := NewEvent(EventLogin)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, EventLogin, a.Type)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestKafkaPublisherRecord(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEvent(EventLogin)
	e.Subject = "sub-1"
	e.Email = "alice@example.com"

	NewKafkaPublisher(pub).Record(context.Background(), e)

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "sub-1", msg.key)
	assert.Equal(t, "login", msg.headers["event-type"])

	var got Event
	require.NoError(t, json.Unmarshal(msg.value, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestKafkaPublisherKeyFallsBackToEmail(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEvent(EventLoginFailed)
	e.Email = "bob@example.com"

	NewKafkaPublisher(pub).Record(context.Background(), e)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "bob@example.com", pub.msgs[0].key)
}

func TestKafkaPublisherErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}

	assert.NotPanics(t, func() {
		NewKafkaPublisher(pub).Record(context.Background(), NewEvent(EventLogout))
	})
	assert.Empty(t, pub.msgs)
}

func TestMulti(t *testing.T) {
	a, b := &captureRecorder{}, &captureRecorder{}
	rec := Multi(a, nil, b)

	rec.Record(context.Background(), NewEvent(EventRefresh))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMultiEmptyIsNop(t *testing.T) {
	rec := Multi(nil)
	assert.Equal(t, Nop(), rec)
	assert.NotPanics(t, func() { rec.Record(context.Background(), NewEvent(EventLogin)) })
}
