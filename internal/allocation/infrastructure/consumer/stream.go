package consumer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockflow/allocation-service/pkg/idempotency"
)

// StreamConfig configures one consumer-group loop. Values come from the
// process configuration and are passed in explicitly.
type StreamConfig struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
	MinIdle   time.Duration
}

// StreamConsumer adapts a Redis Streams consumer group to the batch
// controller. Ids in the retry set are simply not acked: they stay in the
// pending entries list and are reclaimed on a later pass, which is the
// at-least-once redelivery contract.
type StreamConsumer struct {
	log        *slog.Logger
	rdb        *redis.Client
	controller *Controller
	marks      *idempotency.Store
	cfg        StreamConfig
}

func NewStreamConsumer(log *slog.Logger, rdb *redis.Client, controller *Controller, marks *idempotency.Store, cfg StreamConfig) *StreamConsumer {
	return &StreamConsumer{
		log:        log,
		rdb:        rdb,
		controller: controller,
		marks:      marks,
		cfg:        cfg,
	}
}

func (c *StreamConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.log.Info("stream consumer started",
		"stream", c.cfg.Stream, "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("stream consumer stopped")
			return nil
		default:
			if err := c.consumeOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				c.log.Error("consume pass failed", "err", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *StreamConsumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *StreamConsumer) consumeOnce(ctx context.Context) error {
	batch, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	msgs := make([]Message, 0, len(batch))
	for _, m := range batch {
		// Fast-path: ids marked processed on a previous delivery are acked
		// without reinvoking the worker. Correctness never depends on this;
		// the conditional writes stay idempotent without it.
		key := c.marks.Key(c.cfg.Stream, m.ID)
		seen, err := c.marks.Seen(ctx, key)
		if err == nil && seen {
			c.ack(ctx, m.ID)
			continue
		}
		msgs = append(msgs, toMessage(m))
	}
	if len(msgs) == 0 {
		return nil
	}

	result := c.controller.ProcessBatch(ctx, msgs)
	retry := make(map[string]struct{}, len(result.RetryIDs))
	for _, id := range result.RetryIDs {
		retry[id] = struct{}{}
	}

	for _, m := range msgs {
		if _, ok := retry[m.ID]; ok {
			continue
		}
		c.ack(ctx, m.ID)
		if err := c.marks.Mark(ctx, c.marks.Key(c.cfg.Stream, m.ID)); err != nil {
			c.log.Warn("failed to mark message processed", "message_id", m.ID, "err", err)
		}
	}
	return nil
}

// fetch reclaims stale pending entries first, then reads fresh ones.
func (c *StreamConsumer) fetch(ctx context.Context) ([]redis.XMessage, error) {
	claimed, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.MinIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	batch := claimed
	for _, s := range streams {
		batch = append(batch, s.Messages...)
	}
	return batch, nil
}

func (c *StreamConsumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.log.Error("failed to ack message", "message_id", id, "err", err)
	}
}

// toMessage splits a stream entry into the payload field and the
// remaining fields, which producers use for metadata such as trace
// context.
func toMessage(m redis.XMessage) Message {
	msg := Message{ID: m.ID, Headers: make(map[string]string)}
	for k, v := range m.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == "body" {
			msg.Body = []byte(s)
			continue
		}
		msg.Headers[k] = s
	}
	return msg
}
