package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	obs "github.com/mohammed-shakir/ecomap/internal/core/observability"
	"github.com/mohammed-shakir/ecomap/internal/invalidation"
	"github.com/mohammed-shakir/ecomap/internal/layers"
	mylog "github.com/mohammed-shakir/ecomap/internal/logger"
)

// Invalidator drops the cached payload of a layer.
type Invalidator interface {
	Invalidate(ctx context.Context, lt layers.LayerType) error
}

// Refresher refetches lt if it is the layer currently on the map.
type Refresher interface {
	Refresh(lt layers.LayerType) bool
}

type Consumer struct {
	cfg       Config
	logger    *slog.Logger
	zlog      *zerolog.Logger
	cache     Invalidator
	refresher Refresher
	seen      *eventDedupe

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   []int32
}

func New(cfg Config, logger *slog.Logger, zl *zerolog.Logger, c Invalidator, r Refresher) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	return &Consumer{
		cfg:       cfg,
		logger:    logger,
		zlog:      mylog.FromContext(base, zl),
		cache:     c,
		refresher: r,
		seen:      newEventDedupe(1024),
	}
}

// Start consumes invalidation events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("kafkaconsumer: missing layer cache")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{
		process: c.ProcessOne,
		assign:  c.setAssignment,
		revoke:  c.clearAssignment,
	}

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-ctx.Done():
				case <-time.After(c.cfg.RetryBackoff):
				}
			}
		}
	}
}

// Readiness reports whether the group currently holds partitions of the topic.
func (c *Consumer) Readiness() (ready bool, partitions []int32) {
	if !c.assigned.Load() {
		return false, nil
	}
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	return true, slices.Clone(c.assign)
}

func (c *Consumer) setAssignment(claims map[string][]int32) {
	c.assignMu.Lock()
	defer c.assignMu.Unlock()
	c.assign = slices.Clone(claims[c.cfg.Topic])
	slices.Sort(c.assign)
	c.assigned.Store(true)
}

func (c *Consumer) clearAssignment() {
	c.assignMu.Lock()
	defer c.assignMu.Unlock()
	c.assigned.Store(false)
	c.assign = nil
}

// ProcessOne handles a single event. Undecodable or invalid events are
// dropped; cache failures are returned so the message is redelivered.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.ObserveInvalidation("unknown", "decode", err)
		mylog.FromContext(ctx, c.zlog).Error().
			Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("dropping invalidation event")
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.ObserveInvalidation(ev.Layer, ev.Op, err)
		mylog.FromContext(ctx, c.zlog).Warn().
			Err(err).
			Str("kind", "invalid").
			Int64("offset", msg.Offset).
			Msg("dropping invalidation event")
		return nil
	}

	if c.seen.applied(ev) {
		c.logger.Debug("duplicate invalidation event", "layer", ev.Layer, "offset", msg.Offset)
		return nil
	}

	lt := ev.LayerType()
	if err := c.cache.Invalidate(ctx, lt); err != nil {
		obs.ObserveInvalidation(ev.Layer, ev.Op, err)
		mylog.FromContext(ctx, c.zlog).Error().
			Err(err).
			Str("kind", "redis_del").
			Str("layer", ev.Layer).
			Int32("partition", msg.Partition).
			Msg("kafka error")
		return fmt.Errorf("invalidate %s: %w", lt, err)
	}

	c.seen.record(ev)

	refreshed := false
	if c.refresher != nil {
		refreshed = c.refresher.Refresh(lt)
	}

	obs.ObserveInvalidation(ev.Layer, ev.Op, nil)
	mylog.FromContext(mylog.WithLayer(ctx, ev.Layer), c.zlog).Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Bool("refreshed", refreshed).
		Msg("layer cache invalidated")
	return nil
}
