// Package kafka provides an event source consuming decoded events from a
// Kafka topic, for deployments where the radio decoder publishes into a
// broker instead of running in-process.
package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"ramses-exporter/internal/config"
	"ramses-exporter/internal/source"
)

// Source implements source.Source over a Kafka consumer group.
type Source struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewSource creates a Kafka-backed source.
func NewSource(cfg *config.KafkaConfig, logger *slog.Logger) *Source {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Source{reader: reader, logger: logger}
}

// Start consumes messages and delivers each decoded event to the handler.
// Malformed messages are logged and skipped; handler errors never stop the
// stream. Offsets are committed after the handler returns, so a crash
// mid-event redelivers rather than drops.
func (s *Source) Start(ctx context.Context, handler source.Handler) error {
	s.logger.Info("starting kafka event source",
		"topic", s.reader.Config().Topic,
		"group", s.reader.Config().GroupID,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("kafka event source stopping")
			return ctx.Err()
		default:
		}

		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("failed to fetch message", "error", err)
			continue
		}

		ev, err := source.Decode(msg.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable message",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		} else if err := handler(ctx, ev); err != nil {
			s.logger.Error("failed to process event",
				"error", err,
				"event_id", ev.ID,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("failed to commit message",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}
	}
}

// Close closes the Kafka reader.
func (s *Source) Close() error {
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}
