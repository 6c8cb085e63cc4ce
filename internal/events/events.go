package events

import (
	"encoding/json"
	"time"

	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/metrics"

	"github.com/google/uuid"
)

// Emitter 领域事件出口，投递失败不回传给业务调用方
type Emitter interface {
	Emit(eventType string, payload interface{})
	Close() error
}

// Envelope 事件信封
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope 构建事件信封
func NewEnvelope(eventType string, payload interface{}) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// Marshal 序列化信封
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// LogEmitter 仅写日志的事件出口（未配置 kafka 时使用）
type LogEmitter struct{}

// NewLogEmitter 创建日志事件出口
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

// Emit 记录事件
func (LogEmitter) Emit(eventType string, payload interface{}) {
	envelope, err := NewEnvelope(eventType, payload)
	if err != nil {
		metrics.EventsEmitted.WithLabelValues(eventType, "error").Inc()
		logger.Warnw("event_envelope_build_failed", "event_type", eventType, "error", err)
		return
	}
	metrics.EventsEmitted.WithLabelValues(eventType, "ok").Inc()
	logger.Infow("domain_event",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"payload", string(envelope.Payload),
	)
}

// Close 无资源需要释放
func (LogEmitter) Close() error {
	return nil
}
