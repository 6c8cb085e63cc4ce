package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dujiao-next/promo-engine/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewEnvelope(t *testing.T) {
	envelope, err := NewEnvelope("voucher_created", map[string]interface{}{"voucher_id": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "voucher_created", envelope.EventType)
	assert.False(t, envelope.OccurredAt.IsZero())
	assert.JSONEq(t, `{"voucher_id":7}`, string(envelope.Payload))

	other, err := NewEnvelope("voucher_created", nil)
	require.NoError(t, err)
	assert.NotEqual(t, envelope.EventID, other.EventID)
}

func TestKafkaEmitterPublishesEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	emitter := &KafkaEmitter{writer: writer, topic: "promo.events"}

	emitter.Emit("gift_card_status_changed", map[string]interface{}{"gift_card_id": 3, "is_active": false})

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, []byte("gift_card_status_changed"), msg.Key)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, "gift_card_status_changed", envelope.EventType)
	assert.JSONEq(t, `{"gift_card_id":3,"is_active":false}`, string(envelope.Payload))

	require.NoError(t, emitter.Close())
	assert.True(t, writer.closed)
}

func TestKafkaEmitterSwallowsPublishError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	emitter := &KafkaEmitter{writer: writer, topic: "promo.events"}
	assert.NotPanics(t, func() {
		emitter.Emit("voucher_deleted", map[string]interface{}{"voucher_id": 1})
	})
	assert.Empty(t, writer.messages)
}

func TestNewSelectsEmitter(t *testing.T) {
	_, isLog := New(&config.EventsConfig{Enabled: false}).(*LogEmitter)
	assert.True(t, isLog)

	_, isLog = New(&config.EventsConfig{Enabled: true}).(*LogEmitter)
	assert.True(t, isLog, "missing brokers should fall back to log emitter")

	emitter := New(&config.EventsConfig{Enabled: true, Brokers: []string{"127.0.0.1:9092"}})
	kafkaEmitter, ok := emitter.(*KafkaEmitter)
	require.True(t, ok)
	assert.Equal(t, "promo.events", kafkaEmitter.topic)
}

func TestLogEmitterToleratesBadPayload(t *testing.T) {
	emitter := NewLogEmitter()
	assert.NotPanics(t, func() {
		emitter.Emit("voucher_created", map[string]interface{}{"voucher_id": 1})
		emitter.Emit("voucher_created", make(chan int))
	})
	assert.NoError(t, emitter.Close())
}
