package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderPlacedEvent(t *testing.T) {
	raw := []byte(`{"orderId":"ORD00001","sku":"WIDGET1","units":2,"priceCents":500,"userId":"USER0001"}`)
	ev, err := ParseOrderPlacedEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "ORD00001", ev.OrderID)
	assert.Equal(t, "WIDGET1", ev.SKU)
	assert.Equal(t, 2, ev.Units)
}

func TestParseOrderPlacedEventRejectsBadJSON(t *testing.T) {
	_, err := ParseOrderPlacedEvent([]byte(`{not json`))
	require.Error(t, err)
	assert.True(t, HasKind(err, KindInvalidArguments))
}

func TestParseOrderPlacedEventRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing order id", `{"sku":"WIDGET1","units":2,"priceCents":500,"userId":"USER0001"}`},
		{"zero units", `{"orderId":"ORD00001","sku":"WIDGET1","units":0,"priceCents":500,"userId":"USER0001"}`},
		{"negative price", `{"orderId":"ORD00001","sku":"WIDGET1","units":2,"priceCents":-5,"userId":"USER0001"}`},
		{"short sku", `{"orderId":"ORD00001","sku":"W","units":2,"priceCents":500,"userId":"USER0001"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseOrderPlacedEvent([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, HasKind(err, KindInvalidArguments))
			assert.Zero(t, ev)
		})
	}
}

func TestParsePaymentRejectedEvent(t *testing.T) {
	raw := []byte(`{"orderId":"ORD00002","sku":"WIDGET1","units":3,"userId":"USER0001"}`)
	ev, err := ParsePaymentRejectedEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "ORD00002", ev.OrderID)
	assert.Equal(t, 3, ev.Units)

	_, err = ParsePaymentRejectedEvent([]byte(`{"orderId":"ORD00002"}`))
	assert.True(t, HasKind(err, KindInvalidArguments))
}

func TestParseEventName(t *testing.T) {
	for _, valid := range []string{"OrderPlaced", "PaymentRejected", "StockAllocated", "StockDepleted"} {
		_, err := ParseEventName(valid)
		assert.NoError(t, err, valid)
	}
	_, err := ParseEventName("StockExploded")
	require.Error(t, err)
	assert.True(t, HasKind(err, KindInvalidArguments))
}

func TestNewDomainEvent(t *testing.T) {
	ev, err := NewDomainEvent(AllocationSubject("WIDGET1", "ORD00001"), EventStockAllocated,
		StockAllocatedEvent{OrderID: "ORD00001", SKU: "WIDGET1", Units: 2})
	require.NoError(t, err)
	assert.Equal(t, "WIDGET1#ORD00001", ev.SubjectID)
	assert.Equal(t, EventStockAllocated, ev.Name)
	assert.False(t, ev.CreatedAt.IsZero())

	var payload StockAllocatedEvent
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, 2, payload.Units)
}

func TestNewDomainEventRejectsUnknownName(t *testing.T) {
	_, err := NewDomainEvent("WIDGET1#ORD00001", EventName("Bogus"), struct{}{})
	require.Error(t, err)
	assert.True(t, HasKind(err, KindInvalidArguments))
}
