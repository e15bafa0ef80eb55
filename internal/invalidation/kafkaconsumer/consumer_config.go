package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/ecomap/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	RetryBackoff        time.Duration
	InitialOffsetOldest bool
}

// FromConfig fills consumer timings around the env-driven broker settings.
// Only events published after the group first joins matter, so a fresh group
// starts at the newest offset.
func FromConfig(c config.InvalidationCfg) Config {
	return Config{
		Brokers:          c.BrokerList(),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		RetryBackoff:     2 * time.Second,
	}
}
