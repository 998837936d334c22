package pubsub

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	Partitions int    `mapstructure:"partitions"`
}

// Config holds the configuration for the activity feed.
type Config struct {
	Driver string      `mapstructure:"driver"` // "none", "redis", "kafka"
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// NewPublisher builds the publisher for cfg.Driver. The redis driver reuses
// the shared client and fails when none is available.
func NewPublisher(cfg Config, client *redis.Client) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NoopPublisher{}, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis event driver requires a redis connection")
		}
		return NewRedisPublisher(client), nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported event driver: %s", cfg.Driver)
	}
}
