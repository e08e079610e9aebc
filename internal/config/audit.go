package config

import (
	"fmt"
	"net/url"
	"time"

	"sysconfd/internal/retry"
)

// Audit sink names
const (
	SinkJournal  = "journal"
	SinkKafka    = "kafka"
	SinkRabbitMQ = "rabbitmq"
	SinkWebhook  = "webhook"
)

// AuditConfig selects where transaction reports are published
type AuditConfig struct {
	Sinks    []string       `mapstructure:"sinks"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Retry    retry.Config   `mapstructure:"retry"`
}

// KafkaConfig represents the kafka audit sink
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RabbitMQConfig represents the rabbitmq audit sink
type RabbitMQConfig struct {
	URL               string        `mapstructure:"url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	Vhost             string        `mapstructure:"vhost"`
	Exchange          string        `mapstructure:"exchange"`
	RoutingKey        string        `mapstructure:"routing_key"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// WebhookConfig represents the webhook audit sink
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// Enabled reports whether sink is selected
func (c *AuditConfig) Enabled(sink string) bool {
	for _, s := range c.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}

// Validate validates audit configuration
func (c *AuditConfig) Validate() error {
	for _, sink := range c.Sinks {
		switch sink {
		case SinkJournal:
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("audit.kafka.brokers is required when the kafka sink is enabled")
			}
			if c.Kafka.Topic == "" {
				return fmt.Errorf("audit.kafka.topic is required when the kafka sink is enabled")
			}
		case SinkRabbitMQ:
			if c.RabbitMQ.URL == "" {
				return fmt.Errorf("audit.rabbitmq.url is required when the rabbitmq sink is enabled")
			}
		case SinkWebhook:
			u, err := url.Parse(c.Webhook.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("audit.webhook.url must be an http(s) URL when the webhook sink is enabled")
			}
		default:
			return fmt.Errorf("unknown audit sink: %s", sink)
		}
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("audit.retry: %w", err)
	}
	return nil
}
