package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventName is the closed enumeration of domain event kinds. OrderPlaced
// and PaymentRejected arrive as triggers; StockAllocated and StockDepleted
// are raised by this service.
type EventName string

const (
	EventOrderPlaced     EventName = "OrderPlaced"
	EventPaymentRejected EventName = "PaymentRejected"
	EventStockAllocated  EventName = "StockAllocated"
	EventStockDepleted   EventName = "StockDepleted"
)

// ParseEventName validates membership in the closed enumeration.
func ParseEventName(s string) (EventName, error) {
	switch EventName(s) {
	case EventOrderPlaced, EventPaymentRejected, EventStockAllocated, EventStockDepleted:
		return EventName(s), nil
	}
	return "", invalidArguments(fmt.Errorf("unknown event name %q", s))
}

// OrderPlacedEvent triggers the allocate flow.
type OrderPlacedEvent struct {
	OrderID    string `json:"orderId"`
	SKU        string `json:"sku"`
	Units      int    `json:"units"`
	PriceCents int64  `json:"priceCents"`
	UserID     string `json:"userId"`
}

// ParseOrderPlacedEvent validates raw JSON into an OrderPlacedEvent.
// All-or-nothing: any invalid field fails the whole build.
func ParseOrderPlacedEvent(raw []byte) (OrderPlacedEvent, error) {
	var ev OrderPlacedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return OrderPlacedEvent{}, invalidArguments(fmt.Errorf("malformed OrderPlaced payload: %w", err))
	}

	var errs []error
	if !validIdentifier(ev.OrderID) {
		errs = append(errs, errors.New("orderId must be at least 4 characters"))
	}
	if !validIdentifier(ev.SKU) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if !validUnits(ev.Units) {
		errs = append(errs, errors.New("units must be a positive integer"))
	}
	if !validPriceCents(ev.PriceCents) {
		errs = append(errs, errors.New("priceCents must be non-negative"))
	}
	if !validIdentifier(ev.UserID) {
		errs = append(errs, errors.New("userId must be at least 4 characters"))
	}
	if len(errs) > 0 {
		return OrderPlacedEvent{}, invalidArguments(errors.Join(errs...))
	}
	return ev, nil
}

// PaymentRejectedEvent triggers the compensation flow. Units reflect the
// rejected payment's view of the order; the stored allocation row remains
// authoritative for the compensating increment.
type PaymentRejectedEvent struct {
	OrderID string `json:"orderId"`
	SKU     string `json:"sku"`
	Units   int    `json:"units"`
	UserID  string `json:"userId"`
}

// ParsePaymentRejectedEvent validates raw JSON into a PaymentRejectedEvent.
func ParsePaymentRejectedEvent(raw []byte) (PaymentRejectedEvent, error) {
	var ev PaymentRejectedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return PaymentRejectedEvent{}, invalidArguments(fmt.Errorf("malformed PaymentRejected payload: %w", err))
	}

	var errs []error
	if !validIdentifier(ev.OrderID) {
		errs = append(errs, errors.New("orderId must be at least 4 characters"))
	}
	if !validIdentifier(ev.SKU) {
		errs = append(errs, errors.New("sku must be at least 4 characters"))
	}
	if !validUnits(ev.Units) {
		errs = append(errs, errors.New("units must be a positive integer"))
	}
	if !validIdentifier(ev.UserID) {
		errs = append(errs, errors.New("userId must be at least 4 characters"))
	}
	if len(errs) > 0 {
		return PaymentRejectedEvent{}, invalidArguments(errors.Join(errs...))
	}
	return ev, nil
}

// StockAllocatedEvent is raised after a successful (or replayed) allocation.
type StockAllocatedEvent struct {
	OrderID string `json:"orderId"`
	SKU     string `json:"sku"`
	Units   int    `json:"units"`
}

// StockDepletedEvent is raised when stock was insufficient. A business
// rejection, not a defect.
type StockDepletedEvent struct {
	OrderID   string `json:"orderId"`
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
}

// DomainEvent is an append-only record identified by (SubjectID, Name).
// A given pair may be written at most once.
type DomainEvent struct {
	SubjectID string
	Name      EventName
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDomainEvent builds a durable event record from a payload. SubjectID
// identifies the aggregate the event is about; for allocations it is
// AllocationSubject(sku, orderID).
func NewDomainEvent(subjectID string, name EventName, payload any) (DomainEvent, error) {
	if _, err := ParseEventName(string(name)); err != nil {
		return DomainEvent{}, err
	}
	if !validIdentifier(subjectID) {
		return DomainEvent{}, invalidArguments(errors.New("subject id must be at least 4 characters"))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return DomainEvent{}, invalidArguments(fmt.Errorf("marshal %s payload: %w", name, err))
	}
	now := time.Now().UTC()
	return DomainEvent{
		SubjectID: subjectID,
		Name:      name,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AllocationSubject is the event subject id for one (sku, order) allocation.
func AllocationSubject(sku, orderID string) string {
	return sku + "#" + orderID
}
