package application

import (
	"context"
	"log/slog"

	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

// Service orchestrates the allocate and compensation flows against the
// ledger and the event store.
type Service struct {
	log    *slog.Logger
	ledger StockLedger
	events EventStore
}

func NewService(log *slog.Logger, ledger StockLedger, events EventStore) *Service {
	return &Service{log: log, ledger: ledger, events: events}
}

// HandleOrderPlaced runs the allocate flow. Exactly one of StockAllocated
// or StockDepleted is raised per (sku, order): success and idempotent
// replay raise StockAllocated, insufficient stock raises StockDepleted.
// Any other ledger failure propagates unchanged.
func (s *Service) HandleOrderPlaced(ctx context.Context, ev domain.OrderPlacedEvent) error {
	cmd, err := domain.NewAllocateStockCommand(ev.OrderID, ev.SKU, ev.Units, ev.PriceCents, ev.UserID)
	if err != nil {
		return err
	}

	err = s.ledger.Allocate(ctx, cmd)
	switch {
	case err == nil:
		return s.raise(ctx, ev.SKU, ev.OrderID, domain.EventStockAllocated,
			domain.StockAllocatedEvent{OrderID: ev.OrderID, SKU: ev.SKU, Units: ev.Units})
	case domain.HasKind(err, domain.KindDuplicateStockAllocation):
		// A prior attempt already allocated; re-raising is safe because the
		// event store is idempotent.
		s.log.Info("allocation replayed", "order_id", ev.OrderID, "sku", ev.SKU)
		return s.raise(ctx, ev.SKU, ev.OrderID, domain.EventStockAllocated,
			domain.StockAllocatedEvent{OrderID: ev.OrderID, SKU: ev.SKU, Units: ev.Units})
	case domain.HasKind(err, domain.KindDepletedStockAllocation):
		s.log.Info("stock depleted", "order_id", ev.OrderID, "sku", ev.SKU, "requested", ev.Units)
		return s.raise(ctx, ev.SKU, ev.OrderID, domain.EventStockDepleted,
			domain.StockDepletedEvent{OrderID: ev.OrderID, SKU: ev.SKU, Requested: ev.Units})
	default:
		return err
	}
}

// HandlePaymentRejected runs the compensation flow. A missing allocation
// row means the order was already compensated: success, zero mutations.
// The stored row's units drive the compensating increment and its current
// status becomes the expected-prior-status guard.
func (s *Service) HandlePaymentRejected(ctx context.Context, ev domain.PaymentRejectedEvent) error {
	get, err := domain.NewGetAllocationCommand(ev.OrderID, ev.SKU)
	if err != nil {
		return err
	}

	row, err := s.ledger.GetAllocation(ctx, get)
	if err != nil {
		return err
	}
	if row == nil {
		s.log.Info("no allocation to compensate", "order_id", ev.OrderID, "sku", ev.SKU)
		return nil
	}
	if !row.Status.CanTransitionTo(domain.StatusDeallocatedPaymentRejected) {
		// Terminal status: a prior delivery already compensated (or the
		// order was rejected/canceled elsewhere). Replays succeed without
		// mutation.
		s.log.Info("compensation already applied", "order_id", ev.OrderID, "sku", ev.SKU,
			"status", string(row.Status))
		return nil
	}
	if row.Units != ev.Units {
		s.log.Warn("units mismatch between trigger event and allocation row",
			"order_id", ev.OrderID, "sku", ev.SKU,
			"event_units", ev.Units, "row_units", row.Units)
	}

	cmd, err := domain.NewDeallocateStockCommand(
		ev.OrderID, ev.SKU, row.Units, row.Status, domain.StatusDeallocatedPaymentRejected)
	if err != nil {
		return err
	}

	err = s.ledger.Deallocate(ctx, cmd)
	if domain.HasKind(err, domain.KindDuplicateStockAllocation) {
		// Already transitioned by a concurrent or prior compensation.
		s.log.Info("compensation already applied", "order_id", ev.OrderID, "sku", ev.SKU)
		return nil
	}
	return err
}

// GetAllocation serves point lookups for the read surface.
func (s *Service) GetAllocation(ctx context.Context, cmd domain.GetAllocationCommand) (*domain.StockAllocation, error) {
	return s.ledger.GetAllocation(ctx, cmd)
}

// ListAllocations serves bounded list queries for the read surface.
func (s *Service) ListAllocations(ctx context.Context, cmd domain.ListAllocationsCommand) ([]domain.StockAllocation, error) {
	return s.ledger.ListAllocations(ctx, cmd)
}

func (s *Service) raise(ctx context.Context, sku, orderID string, name domain.EventName, payload any) error {
	event, err := domain.NewDomainEvent(domain.AllocationSubject(sku, orderID), name, payload)
	if err != nil {
		return err
	}
	err = s.events.RaiseEvent(ctx, event)
	if domain.HasKind(err, domain.KindDuplicateEventRaised) {
		// Already published on an earlier delivery.
		s.log.Info("event already raised", "subject", event.SubjectID, "event", string(name))
		return nil
	}
	return err
}
