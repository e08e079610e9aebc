package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"sysconfd/internal/config"
	"sysconfd/internal/retry"
	"sysconfd/internal/types"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes reports as JSON messages keyed by transaction id
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a kafka sink. Brokers are dialed lazily on the
// first write.
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// Publish writes the report
func (p *KafkaPublisher) Publish(ctx context.Context, report *types.TransactionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal report: %w", err))
	}

	msg := kafka.Message{
		Key:   []byte(report.ID),
		Value: data,
		Time:  report.FinishedAt,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(report.Status)},
			{Key: "phase", Value: []byte(report.Phase)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Report written to kafka",
		zap.String("topic", p.topic),
		zap.String("transaction_id", report.ID))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
