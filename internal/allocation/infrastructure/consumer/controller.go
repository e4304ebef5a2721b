package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/stockflow/allocation-service/internal/allocation/application"
	"github.com/stockflow/allocation-service/internal/allocation/domain"
	"github.com/stockflow/allocation-service/pkg/tracing"
)

// Message is one opaque inbound envelope from the batch source. Headers
// carry transport metadata, including upstream trace context.
type Message struct {
	ID      string
	Body    []byte
	Headers map[string]string
}

// BatchResult carries the ids to redeliver. Ids not listed are considered
// permanently handled by the transport.
type BatchResult struct {
	RetryIDs []string
}

type envelope struct {
	EventName string          `json:"eventName"`
	Detail    json.RawMessage `json:"detail"`
}

// Controller iterates an inbound batch and classifies each item
// independently: only transient failures join the retry set. A message
// that can never succeed is dropped rather than allowed to block the
// stream.
type Controller struct {
	log    *slog.Logger
	svc    *application.Service
	tracer trace.Tracer
}

func NewController(log *slog.Logger, svc *application.Service) *Controller {
	return &Controller{
		log:    log,
		svc:    svc,
		tracer: otel.Tracer("allocation-consumer"),
	}
}

// ProcessBatch applies the retry decision table. Items never observe each
// other's outcome: delivery order is not guaranteed and some transports
// redeliver only the ids actually reported.
func (c *Controller) ProcessBatch(ctx context.Context, msgs []Message) BatchResult {
	var retry []string
	for _, m := range msgs {
		err := c.process(ctx, m)
		switch {
		case err == nil:
		case domain.IsTransient(err):
			c.log.Warn("message scheduled for retry", "message_id", m.ID, "err", err)
			retry = append(retry, m.ID)
		default:
			c.log.Error("message dropped", "message_id", m.ID, "err", err)
		}
	}
	return BatchResult{RetryIDs: retry}
}

func (c *Controller) process(ctx context.Context, m Message) error {
	var env envelope
	if err := json.Unmarshal(m.Body, &env); err != nil {
		return domain.NewFailure(domain.KindInvalidArguments,
			fmt.Errorf("malformed envelope: %w", err))
	}

	name, err := domain.ParseEventName(env.EventName)
	if err != nil {
		return err
	}

	// Continue the producer's trace when the entry carries one.
	ctx = tracing.ExtractMap(ctx, m.Headers)
	ctx, span := c.tracer.Start(ctx, "Consume"+string(name))
	defer span.End()

	switch name {
	case domain.EventOrderPlaced:
		ev, err := domain.ParseOrderPlacedEvent(env.Detail)
		if err != nil {
			return err
		}
		return c.svc.HandleOrderPlaced(ctx, ev)
	case domain.EventPaymentRejected:
		ev, err := domain.ParsePaymentRejectedEvent(env.Detail)
		if err != nil {
			return err
		}
		return c.svc.HandlePaymentRejected(ctx, ev)
	default:
		// StockAllocated/StockDepleted are outbound only.
		return domain.NewFailure(domain.KindInvalidArguments,
			fmt.Errorf("event %s is not a consumable trigger", name))
	}
}
