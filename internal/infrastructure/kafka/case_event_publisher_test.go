package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepay/internal/domain/service"
)

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishCaseEvent_KeyedByCaseNumber(t *testing.T) {
	w := &recordingWriter{}
	p := &CaseEventPublisher{writer: w}

	err := p.PublishCaseEvent(context.Background(), service.CaseEvent{
		Type:       service.CaseEventPaymentCompleted,
		CaseID:     42,
		CaseNumber: "ODR-2024-0042",
		Status:     "waiting_for_action",
		Amount:     5310,
		Source:     "webhook",
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "ODR-2024-0042", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, service.CaseEventPaymentCompleted, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, float64(42), decoded["case_id"])
	assert.Equal(t, "waiting_for_action", decoded["status"])
}

func TestPublishCaseEvent_FallsBackToCaseID(t *testing.T) {
	w := &recordingWriter{}
	p := &CaseEventPublisher{writer: w}

	require.NoError(t, p.PublishCaseEvent(context.Background(), service.CaseEvent{Type: service.CaseEventStatusChanged, CaseID: 7}))
	assert.Equal(t, "7", string(w.messages[0].Key))
}
