package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", "debug", &buf)

	log.Warn("notification_failed", "req-1", "could not notify user", errors.New("broker down"), map[string]any{
		"order_id": "o-1",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "order-service", record["service"])
	assert.Equal(t, "notification_failed", record["action"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "o-1", record["order_id"])
	assert.Equal(t, "broker down", record["error"].(map[string]any)["msg"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", "warn", &buf)
	log.Info("ignored", "", "below threshold", nil)
	assert.Zero(t, buf.Len())
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
	assert.NotEmpty(t, GenerateRequestID())
}
