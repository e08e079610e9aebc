package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"sysconfd/internal/config"
	"sysconfd/internal/retry"
	"sysconfd/internal/types"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes reports to a topic exchange
type RabbitMQPublisher struct {
	conn       *amqp.Connection
	channel    amqpChannel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewRabbitMQPublisher dials the broker and declares the exchange
func NewRabbitMQPublisher(cfg *config.RabbitMQConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	url := cfg.URL
	if cfg.Username != "" {
		url = fmt.Sprintf("amqp://%s:%s@%s/%s", cfg.Username, cfg.Password, cfg.URL, cfg.Vhost)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: cfg.HeartbeatInterval,
		Vhost:     cfg.Vhost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Exchange))

	p := newRabbitMQPublisher(ch, cfg.Exchange, cfg.RoutingKey, logger)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(ch amqpChannel, exchange, routingKey string, logger *zap.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

// Publish sends the report as a persistent JSON message
func (p *RabbitMQPublisher) Publish(ctx context.Context, report *types.TransactionReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal report: %w", err))
	}

	key := p.routingKey + "." + string(report.Status)
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    report.ID,
		Timestamp:    report.FinishedAt,
		Type:         string(report.Phase),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s: %w", p.exchange, err)
	}

	p.logger.Debug("Report published to RabbitMQ",
		zap.String("routing_key", key),
		zap.String("transaction_id", report.ID))
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
