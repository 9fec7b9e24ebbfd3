package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/physickd/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	messages []kafka.Message
	err      error
}

func (m *memoryWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *memoryWriter) Close() error { return nil }

func TestPublishEvent(t *testing.T) {
	w := &memoryWriter{}
	p := NewProducerWithWriter(w, "ckd.predictions")

	err := p.PublishEvent(context.Background(), models.EventPredictionCompleted, "prediction-service", map[string]interface{}{"class": 1})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	var event models.Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, models.EventPredictionCompleted, event.Type)
	assert.Equal(t, "prediction-service", event.Source)
	assert.Equal(t, event.ID, string(w.messages[0].Key))
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublishEventReturnsWriterError(t *testing.T) {
	p := NewProducerWithWriter(&memoryWriter{err: errors.New("no brokers")}, "ckd.predictions")
	assert.Error(t, p.PublishEvent(context.Background(), "x", "y", nil))
}

// memoryReader serves queued messages then blocks until the context ends.
type memoryReader struct {
	queue     []kafka.Message
	committed []kafka.Message
}

func (m *memoryReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(m.queue) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, nil
}

func (m *memoryReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *memoryReader) Close() error { return nil }

func eventMessage(t *testing.T, offset int64, id string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.Event{ID: id, Type: models.EventPredictionCompleted})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func TestConsumeCommitsHandledAndMalformedMessages(t *testing.T) {
	reader := &memoryReader{queue: []kafka.Message{
		eventMessage(t, 1, "ok"),
		{Offset: 2, Value: []byte("not json")},
		eventMessage(t, 3, "last"),
	}}
	c := NewConsumerWithReader(reader)

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	err := c.Consume(ctx, func(ctx context.Context, event models.Event) error {
		handled = append(handled, event.ID)
		if event.ID == "last" {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ok", "last"}, handled)
	require.Len(t, reader.committed, 3)
	for i, msg := range reader.committed {
		assert.Equal(t, int64(i+1), msg.Offset)
	}
}

func TestConsumeRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &memoryReader{queue: []kafka.Message{
		eventMessage(t, 1, "first"),
		eventMessage(t, 2, "flaky"),
		eventMessage(t, 3, "after"),
	}}
	c := NewConsumerWithReader(reader)
	c.retryBase = time.Millisecond
	c.retryMax = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	failures := 2
	err := c.Consume(ctx, func(ctx context.Context, event models.Event) error {
		handled = append(handled, event.ID)
		if event.ID == "flaky" && failures > 0 {
			failures--
			// Nothing past the failing offset may be committed yet.
			assert.Len(t, reader.committed, 1)
			assert.Len(t, reader.queue, 1)
			return errors.New("store down")
		}
		if event.ID == "after" {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first", "flaky", "flaky", "flaky", "after"}, handled)
	require.Len(t, reader.committed, 3)
	for i, msg := range reader.committed {
		assert.Equal(t, int64(i+1), msg.Offset)
	}
}

func TestConsumeStopsRetryingWhenContextEnds(t *testing.T) {
	reader := &memoryReader{queue: []kafka.Message{
		eventMessage(t, 1, "stuck"),
		eventMessage(t, 2, "never"),
	}}
	c := NewConsumerWithReader(reader)
	c.retryBase = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := c.Consume(ctx, func(ctx context.Context, event models.Event) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		assert.Equal(t, "stuck", event.ID)
		return errors.New("store down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.queue, 1)
}
