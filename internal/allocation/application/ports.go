package application

import (
	"context"

	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

// StockLedger is the shared ledger interface consumed by both worker
// flows. Implementations perform atomic multi-record conditional writes;
// all cross-request correctness comes from guards evaluated at commit
// time, never from in-process locking.
type StockLedger interface {
	// Allocate conditionally creates the allocation row and decrements the
	// sku stock level in one all-or-nothing operation. Classified failures:
	// KindDuplicateStockAllocation when the row already exists,
	// KindDepletedStockAllocation when stock is insufficient,
	// KindUnrecognized otherwise.
	Allocate(ctx context.Context, cmd domain.AllocateStockCommand) error

	// Deallocate transitions the allocation row from its expected prior
	// status and re-increments the sku stock level atomically. A row whose
	// status no longer matches is rejected with
	// KindDuplicateStockAllocation.
	Deallocate(ctx context.Context, cmd domain.DeallocateStockCommand) error

	// GetAllocation returns the row, or nil when none exists.
	GetAllocation(ctx context.Context, cmd domain.GetAllocationCommand) (*domain.StockAllocation, error)

	// ListAllocations returns rows for one sku, ordered and bounded.
	ListAllocations(ctx context.Context, cmd domain.ListAllocationsCommand) ([]domain.StockAllocation, error)
}

// EventStore is an idempotent producer: raising the same event any
// number of times has the durable effect of exactly one publication.
type EventStore interface {
	// RaiseEvent conditionally appends the event keyed by
	// (subject, event name). An already-written pair is rejected with
	// KindDuplicateEventRaised, which callers treat as success.
	RaiseEvent(ctx context.Context, event domain.DomainEvent) error
}
