package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// EngineEventProducer publishes cycle engine events to the events topic.
// Messages are keyed by group id so each group's events stay ordered within
// one partition.
type EngineEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewEngineEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EngineEventProducer, error) {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for engine event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.EventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for engine event producer: %w", cfg.EventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{}, // Keep a group's events on one partition
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &EngineEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventsTopic,
	}, nil
}

// Publish writes one engine event. Callers treat delivery as best effort:
// the originating state change is already committed when this runs.
func (p *EngineEventProducer) Publish(ctx context.Context, event *shared.EngineEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal engine event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.GroupID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish engine event",
			"topic", p.topic,
			"type", string(event.Type),
			"group_id", event.GroupID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to publish engine event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published engine event",
		"topic", p.topic,
		"type", string(event.Type),
		"group_id", event.GroupID.String(),
	)
	return nil
}

func (p *EngineEventProducer) Close() error {
	p.logger.Info("Closing engine event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
