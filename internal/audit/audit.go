// Package audit publishes transaction reports to the configured sinks.
// Publication never changes the outcome of a transaction.
package audit

import (
	"context"
	"errors"
	"fmt"

	"sysconfd/internal/config"
	"sysconfd/internal/retry"
	"sysconfd/internal/types"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Publisher delivers transaction reports to one sink
type Publisher interface {
	Publish(ctx context.Context, report *types.TransactionReport) error
	Close() error
}

// Journal is the datastore side of the journal sink
type Journal interface {
	RecordTransaction(ctx context.Context, report *types.TransactionReport) error
}

// JournalPublisher records reports in the startup datastore
type JournalPublisher struct {
	journal Journal
}

// NewJournalPublisher creates a journal sink
func NewJournalPublisher(journal Journal) *JournalPublisher {
	return &JournalPublisher{journal: journal}
}

// Publish records the report
func (p *JournalPublisher) Publish(ctx context.Context, report *types.TransactionReport) error {
	return p.journal.RecordTransaction(ctx, report)
}

// Close is a no-op; the datastore is closed by its owner
func (p *JournalPublisher) Close() error { return nil }

// retrying re-publishes to a remote sink on transient failures
type retrying struct {
	name    string
	retrier *retry.Retrier
	Publisher
}

func (r *retrying) Publish(ctx context.Context, report *types.TransactionReport) error {
	return r.retrier.Do(ctx, "publish to "+r.name, func(ctx context.Context) error {
		return r.Publisher.Publish(ctx, report)
	})
}

type namedPublisher struct {
	name string
	Publisher
}

// Multi fans reports out to several publishers
type Multi struct {
	publishers []namedPublisher
	logger     *zap.Logger
}

// NewMulti creates an empty fan-out publisher
func NewMulti(logger *zap.Logger) *Multi {
	return &Multi{logger: logger}
}

// Add registers a publisher under name
func (m *Multi) Add(name string, p Publisher) {
	m.publishers = append(m.publishers, namedPublisher{name: name, Publisher: p})
}

// Len returns the number of registered publishers
func (m *Multi) Len() int {
	return len(m.publishers)
}

// Publish delivers report to every publisher. Failures are logged and
// joined; every publisher is attempted.
func (m *Multi) Publish(ctx context.Context, report *types.TransactionReport) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, report); err != nil {
			m.logger.Warn("Failed to publish transaction report",
				zap.String("sink", p.name),
				zap.String("transaction_id", report.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	return errors.Join(errs...)
}

// New builds the publishers selected in cfg. Remote sinks are retried
// per cfg.Retry; the journal is not.
func New(cfg *config.AuditConfig, journal Journal, logger *zap.Logger) (*Multi, error) {
	m := NewMulti(logger)
	retrier := retry.New(&cfg.Retry, clockwork.NewRealClock(), logger.Named("retry"))
	remote := func(name string, p Publisher) Publisher {
		return &retrying{name: name, retrier: retrier, Publisher: p}
	}

	for _, sink := range cfg.Sinks {
		switch sink {
		case config.SinkJournal:
			if journal == nil {
				return nil, fmt.Errorf("journal sink requires a datastore")
			}
			m.Add(sink, NewJournalPublisher(journal))

		case config.SinkKafka:
			m.Add(sink, remote(sink, NewKafkaPublisher(&cfg.Kafka, logger.Named("kafka"))))

		case config.SinkRabbitMQ:
			p, err := NewRabbitMQPublisher(&cfg.RabbitMQ, logger.Named("rabbitmq"))
			if err != nil {
				_ = m.Close()
				return nil, err
			}
			m.Add(sink, remote(sink, p))

		case config.SinkWebhook:
			m.Add(sink, remote(sink, NewWebhookPublisher(&cfg.Webhook, logger.Named("webhook"))))

		default:
			_ = m.Close()
			return nil, fmt.Errorf("unknown audit sink: %s", sink)
		}
		logger.Info("Audit sink enabled", zap.String("sink", sink))
	}

	return m, nil
}
