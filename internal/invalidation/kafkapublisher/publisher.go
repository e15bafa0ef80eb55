// Package kafkapublisher sends dataset-changed events to the invalidation
// topic. It is the producing side of kafkaconsumer.
package kafkapublisher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/ecomap/internal/invalidation"
)

type Publisher struct {
	topic string
	prod  sarama.SyncProducer
}

// New connects a synchronous producer that waits for all in-sync replicas.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafkapublisher: no brokers")
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafkapublisher: create producer: %w", err)
	}
	return NewWithProducer(prod, topic), nil
}

func NewWithProducer(prod sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{topic: topic, prod: prod}
}

// Publish validates ev and sends it keyed by layer, so events of one layer
// stay ordered on a single partition.
func (p *Publisher) Publish(ev invalidation.Event) (partition int32, offset int64, err error) {
	if err := ev.Validate(); err != nil {
		return 0, 0, fmt.Errorf("kafkapublisher: invalid event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, fmt.Errorf("kafkapublisher: marshal: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Layer),
		Value: sarama.ByteEncoder(b),
	}
	partition, offset, err = p.prod.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("kafkapublisher: send %s: %w", ev.Layer, err)
	}
	return partition, offset, nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("kafkapublisher: close producer: %w", err)
	}
	return nil
}
