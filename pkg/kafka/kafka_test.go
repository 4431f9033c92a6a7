package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"foodorder/pkg/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, kafka.ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, kafka.ParseBrokers(""))
}

func TestNewPublisher_Disabled(t *testing.T) {
	_, err := kafka.NewPublisher("", "topic")
	assert.ErrorIs(t, err, kafka.ErrDisabled)
}

func TestPublisher_Notify(t *testing.T) {
	w := &recordingWriter{}
	p := kafka.NewPublisherWithWriter(w)

	require.NoError(t, p.Notify(context.Background(), "user-1", "order.created", map[string]any{"order_id": "o1"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-1", string(w.msgs[0].Key))

	var n kafka.Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &n))
	assert.Equal(t, "order.created", n.Event)
	assert.Equal(t, "o1", n.Payload["order_id"])
}

func TestPublisher_NotifyError(t *testing.T) {
	p := kafka.NewPublisherWithWriter(&recordingWriter{err: errors.New("broker down")})
	err := p.Notify(context.Background(), "user-1", "order.created", nil)
	assert.ErrorContains(t, err, "broker down")
}
