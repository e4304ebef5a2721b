package eventrelay

import (
	"context"
	"log/slog"
	"time"
)

// Store supplies unpublished events and records publication. LockBatch
// claims rows under a lease so concurrent relay instances skip each
// other's work; publication stays at-least-once because a crash between
// Dispatch and MarkPublished redelivers once the lease expires, and
// downstream consumers are expected to be idempotent.
type Store interface {
	LockBatch(ctx context.Context, relayID string, limit int, lease time.Duration) ([]Event, error)
	MarkPublished(ctx context.Context, keys []Key) error
}

// Relay polls the event store and fans out to Kafka. It is the only
// component that reads publication state; the allocation core never does.
type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, batchSize int, interval, lease time.Duration) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: batchSize,
		interval:  interval,
		lease:     lease,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		r.log.Error("relay lock batch failed", "relay_id", r.relayID, "err", err)
		return
	}
	if len(events) == 0 {
		return
	}

	published := make([]Key, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			// Left unpublished; claimed again after the lease expires.
			continue
		}
		published = append(published, e.Key())
	}
	if len(published) == 0 {
		return
	}
	if err := r.store.MarkPublished(ctx, published); err != nil {
		r.log.Error("relay mark published failed", "relay_id", r.relayID, "err", err)
	}
}
