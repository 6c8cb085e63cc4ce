package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/metrics"

	"github.com/segmentio/kafka-go"
)

const defaultPublishTimeout = 5 * time.Second

// ErrNoBrokers 未配置 kafka 地址
var ErrNoBrokers = errors.New("kafka brokers not configured")

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter 通过 kafka 投递领域事件
type KafkaEmitter struct {
	writer messageWriter
	topic  string
}

// NewKafkaEmitter 创建 kafka 事件出口
func NewKafkaEmitter(cfg *config.EventsConfig) (*KafkaEmitter, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = "promo.events"
	}
	batchTimeout := time.Duration(cfg.BatchTimeout) * time.Millisecond
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: batchTimeout,
		Async:        cfg.Async,
		MaxAttempts:  5,
	}
	return &KafkaEmitter{writer: writer, topic: topic}, nil
}

// Emit 投递事件，失败只记录日志
func (e *KafkaEmitter) Emit(eventType string, payload interface{}) {
	envelope, err := NewEnvelope(eventType, payload)
	if err != nil {
		metrics.EventsEmitted.WithLabelValues(eventType, "error").Inc()
		logger.Warnw("event_envelope_build_failed", "event_type", eventType, "error", err)
		return
	}
	body, err := envelope.Marshal()
	if err != nil {
		metrics.EventsEmitted.WithLabelValues(eventType, "error").Inc()
		logger.Warnw("event_marshal_failed", "event_type", eventType, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(eventType),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsEmitted.WithLabelValues(eventType, "error").Inc()
		logger.Warnw("event_publish_failed",
			"topic", e.topic,
			"event_type", eventType,
			"event_id", envelope.EventID,
			"error", err,
		)
		return
	}
	metrics.EventsEmitted.WithLabelValues(eventType, "ok").Inc()
	logger.Debugw("event_published", "topic", e.topic, "event_type", eventType, "event_id", envelope.EventID)
}

// Close 刷新并关闭 writer
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}

// New 按配置选择事件出口
func New(cfg *config.EventsConfig) Emitter {
	if cfg == nil || !cfg.Enabled {
		return NewLogEmitter()
	}
	emitter, err := NewKafkaEmitter(cfg)
	if err != nil {
		logger.Warnw("event_kafka_emitter_init_failed", "error", err, "fallback", "log")
		return NewLogEmitter()
	}
	return emitter
}
