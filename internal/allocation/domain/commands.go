package domain

import (
	"errors"
	"fmt"
)

// Commands are ephemeral, fully-validated value objects scoped to a
// single call. Fields are unexported so the smart constructors below are
// the only way to obtain an instance: anything holding a command holds a
// valid one.

// AllocateStockCommand requests a new allocation for (sku, order).
type AllocateStockCommand struct {
	orderID    string
	sku        string
	units      int
	priceCents int64
	userID     string
}

// NewAllocateStockCommand validates and builds an AllocateStockCommand.
// All-or-nothing: any invalid field fails the whole build with
// KindInvalidArguments and no partial object.
func NewAllocateStockCommand(orderID, sku string, units int, priceCents int64, userID string) (AllocateStockCommand, error) {
	var errs []error
	if !validIdentifier(orderID) {
		errs = append(errs, errors.New("orderId must be at least 4 characters"))
	}
	if !validIdentifier(sku) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if !validUnits(units) {
		errs = append(errs, errors.New("units must be a positive integer"))
	}
	if !validPriceCents(priceCents) {
		errs = append(errs, errors.New("priceCents must be non-negative"))
	}
	if !validIdentifier(userID) {
		errs = append(errs, errors.New("userId must be at least 4 characters"))
	}
	if len(errs) > 0 {
		return AllocateStockCommand{}, invalidArguments(errors.Join(errs...))
	}
	return AllocateStockCommand{
		orderID:    orderID,
		sku:        sku,
		units:      units,
		priceCents: priceCents,
		userID:     userID,
	}, nil
}

func (c AllocateStockCommand) OrderID() string   { return c.orderID }
func (c AllocateStockCommand) SKU() string       { return c.sku }
func (c AllocateStockCommand) Units() int        { return c.units }
func (c AllocateStockCommand) PriceCents() int64 { return c.priceCents }
func (c AllocateStockCommand) UserID() string    { return c.userID }

// DeallocateStockCommand transitions an allocation row from an expected
// prior status to a new one and re-increments the sku stock level. The
// expected status is the optimistic-concurrency guard evaluated by the
// ledger at commit time.
type DeallocateStockCommand struct {
	orderID  string
	sku      string
	units    int
	expected AllocationStatus
	next     AllocationStatus
}

// NewDeallocateStockCommand validates and builds a DeallocateStockCommand.
func NewDeallocateStockCommand(orderID, sku string, units int, expected, next AllocationStatus) (DeallocateStockCommand, error) {
	var errs []error
	if !validIdentifier(orderID) {
		errs = append(errs, errors.New("orderId must be at least 4 characters"))
	}
	if !validIdentifier(sku) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if !validUnits(units) {
		errs = append(errs, errors.New("units must be a positive integer"))
	}
	if _, err := ParseAllocationStatus(string(expected)); err != nil {
		errs = append(errs, fmt.Errorf("expected status: %q is not a known status", expected))
	}
	if _, err := ParseAllocationStatus(string(next)); err != nil {
		errs = append(errs, fmt.Errorf("next status: %q is not a known status", next))
	}
	if len(errs) > 0 {
		return DeallocateStockCommand{}, invalidArguments(errors.Join(errs...))
	}
	if !expected.CanTransitionTo(next) {
		return DeallocateStockCommand{}, invalidArguments(
			fmt.Errorf("illegal status transition %s -> %s", expected, next))
	}
	return DeallocateStockCommand{
		orderID:  orderID,
		sku:      sku,
		units:    units,
		expected: expected,
		next:     next,
	}, nil
}

func (c DeallocateStockCommand) OrderID() string                  { return c.orderID }
func (c DeallocateStockCommand) SKU() string                      { return c.sku }
func (c DeallocateStockCommand) Units() int                       { return c.units }
func (c DeallocateStockCommand) ExpectedStatus() AllocationStatus { return c.expected }
func (c DeallocateStockCommand) NextStatus() AllocationStatus     { return c.next }

// GetAllocationCommand is a point lookup for one (sku, order) row.
type GetAllocationCommand struct {
	orderID string
	sku     string
}

// NewGetAllocationCommand validates and builds a GetAllocationCommand.
func NewGetAllocationCommand(orderID, sku string) (GetAllocationCommand, error) {
	var errs []error
	if !validIdentifier(orderID) {
		errs = append(errs, errors.New("orderId must be at least 4 characters"))
	}
	if !validIdentifier(sku) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if len(errs) > 0 {
		return GetAllocationCommand{}, invalidArguments(errors.Join(errs...))
	}
	return GetAllocationCommand{orderID: orderID, sku: sku}, nil
}

func (c GetAllocationCommand) OrderID() string { return c.orderID }
func (c GetAllocationCommand) SKU() string     { return c.sku }

// SortDirection is the closed enumeration for list ordering.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection validates membership in the closed enumeration.
func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(s) {
	case SortAsc, SortDesc:
		return SortDirection(s), nil
	}
	return "", invalidArguments(fmt.Errorf("unknown sort direction %q", s))
}

// ListAllocationsCommand queries allocations for one sku with a bounded
// page size.
type ListAllocationsCommand struct {
	sku   string
	sort  SortDirection
	limit int
}

// NewListAllocationsCommand validates and builds a ListAllocationsCommand.
func NewListAllocationsCommand(sku string, sort SortDirection, limit int) (ListAllocationsCommand, error) {
	var errs []error
	if !validIdentifier(sku) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if _, err := ParseSortDirection(string(sort)); err != nil {
		errs = append(errs, fmt.Errorf("sort: %q is not a known direction", sort))
	}
	if !validLimit(limit) {
		errs = append(errs, fmt.Errorf("limit must be between 1 and %d", maxListLimit))
	}
	if len(errs) > 0 {
		return ListAllocationsCommand{}, invalidArguments(errors.Join(errs...))
	}
	return ListAllocationsCommand{sku: sku, sort: sort, limit: limit}, nil
}

func (c ListAllocationsCommand) SKU() string         { return c.sku }
func (c ListAllocationsCommand) Sort() SortDirection { return c.sort }
func (c ListAllocationsCommand) Limit() int          { return c.limit }
