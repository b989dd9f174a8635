// Package events publishes committed request lifecycle changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avakara/ewaste-platform/internal/config"
	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
)

const publishTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes one message per event, keyed by request id so a request's events stay ordered.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(cfg config.KafkaConfig) *KafkaSink {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: cfg.Brokers, Topic: cfg.Topic, Balancer: &kafka.Hash{}})
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Publish(ctx context.Context, event model.RequestEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", event.Kind, err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.RequestID.String()), Value: b})
	metrics.ExternalCallDuration.WithLabelValues("kafka", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("events: write %s: %w", event.Kind, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
