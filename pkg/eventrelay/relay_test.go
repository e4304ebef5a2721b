package eventrelay

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	pending   []Event
	locks     []string
	published []Key
}

func (f *fakeStore) LockBatch(_ context.Context, relayID string, _ int, _ time.Duration) ([]Event, error) {
	f.locks = append(f.locks, relayID)
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, keys []Key) error {
	f.published = append(f.published, keys...)
	return nil
}

type fakeProducer struct {
	written []kafka.Message
	failFor map[string]error
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if err := f.failFor[string(m.Key)]; err != nil {
			return err
		}
		f.written = append(f.written, m)
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestRelayPublishesAndMarks(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{SubjectID: "WIDGET1#ORD00001", Name: "StockAllocated", Payload: []byte(`{}`), CreatedAt: time.Now()},
		{SubjectID: "WIDGET1#ORD00002", Name: "StockDepleted", Payload: []byte(`{}`), CreatedAt: time.Now()},
	}}
	producer := &fakeProducer{}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "stock.events"), "relay-1", 100, time.Millisecond, time.Minute)

	relay.tick(context.Background())

	require.Len(t, producer.written, 2)
	assert.Equal(t, []string{"relay-1"}, store.locks, "batch claimed under this relay's id")
	assert.Equal(t, []Key{
		{SubjectID: "WIDGET1#ORD00001", Name: "StockAllocated"},
		{SubjectID: "WIDGET1#ORD00002", Name: "StockDepleted"},
	}, store.published)
}

func TestRelayLeavesFailedDispatchUnpublished(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{SubjectID: "WIDGET1#ORD00001", Name: "StockAllocated", Payload: []byte(`{}`)},
		{SubjectID: "WIDGET1#ORD00002", Name: "StockAllocated", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{failFor: map[string]error{
		"WIDGET1#ORD00001": errors.New("broker down"),
	}}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "stock.events"), "relay-1", 100, time.Millisecond, time.Minute)

	relay.tick(context.Background())

	require.Len(t, store.published, 1)
	assert.Equal(t, "WIDGET1#ORD00002", store.published[0].SubjectID)
}

func TestDispatcherCarriesEventNameHeader(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(discard(), producer, "stock.events")

	err := d.Dispatch(context.Background(), Event{
		SubjectID: "WIDGET1#ORD00001",
		Name:      "StockAllocated",
		Payload:   []byte(`{"units":2}`),
	})
	require.NoError(t, err)
	require.Len(t, producer.written, 1)

	msg := producer.written[0]
	assert.Equal(t, "stock.events", msg.Topic)
	assert.Equal(t, []byte("WIDGET1#ORD00001"), msg.Key)

	var found bool
	for _, h := range msg.Headers {
		if h.Key == "event_name" {
			found = true
			assert.Equal(t, []byte("StockAllocated"), h.Value)
		}
	}
	assert.True(t, found)
}
