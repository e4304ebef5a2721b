package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/allocation-service/internal/allocation/application"
	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

type fakeLedger struct {
	row  *domain.StockAllocation
	rows []domain.StockAllocation
}

func (f *fakeLedger) Allocate(context.Context, domain.AllocateStockCommand) error { return nil }

func (f *fakeLedger) Deallocate(context.Context, domain.DeallocateStockCommand) error { return nil }

func (f *fakeLedger) GetAllocation(context.Context, domain.GetAllocationCommand) (*domain.StockAllocation, error) {
	return f.row, nil
}

func (f *fakeLedger) ListAllocations(_ context.Context, cmd domain.ListAllocationsCommand) ([]domain.StockAllocation, error) {
	if len(f.rows) > cmd.Limit() {
		return f.rows[:cmd.Limit()], nil
	}
	return f.rows, nil
}

type nopEventStore struct{}

func (nopEventStore) RaiseEvent(context.Context, domain.DomainEvent) error { return nil }

func newTestServer(ledger *fakeLedger) *httptest.Server {
	log := slog.New(slog.DiscardHandler)
	h := NewHandler(log, application.NewService(log, ledger, nopEventStore{}))
	return httptest.NewServer(h.Routes())
}

func TestGetAllocation(t *testing.T) {
	ledger := &fakeLedger{row: &domain.StockAllocation{
		OrderID:   "ORD00001",
		SKU:       "WIDGET1",
		Units:     2,
		UserID:    "USER0001",
		Status:    domain.StatusAllocated,
		CreatedAt: time.Now().UTC(),
	}}
	srv := newTestServer(ledger)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/allocations/WIDGET1/ORD00001")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.StockAllocation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ORD00001", got.OrderID)
	assert.Equal(t, domain.StatusAllocated, got.Status)
}

func TestGetAllocationNotFound(t *testing.T) {
	srv := newTestServer(&fakeLedger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/allocations/WIDGET1/ORD09999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAllocationRejectsShortIdentifiers(t *testing.T) {
	srv := newTestServer(&fakeLedger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/allocations/W1/ORD00001")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAllocations(t *testing.T) {
	ledger := &fakeLedger{rows: []domain.StockAllocation{
		{OrderID: "ORD00001", SKU: "WIDGET1", Units: 2, Status: domain.StatusAllocated},
		{OrderID: "ORD00002", SKU: "WIDGET1", Units: 1, Status: domain.StatusDeallocatedPaymentRejected},
	}}
	srv := newTestServer(ledger)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/allocations?sku=WIDGET1&sort=asc&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []domain.StockAllocation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestListAllocationsRejectsBadQuery(t *testing.T) {
	srv := newTestServer(&fakeLedger{})
	defer srv.Close()

	for _, url := range []string{
		"/allocations?sku=WIDGET1&sort=sideways",
		"/allocations?sku=WIDGET1&limit=0",
		"/allocations?sku=WIDGET1&limit=9999",
		"/allocations?sku=W1",
		"/allocations?sku=WIDGET1&limit=abc",
	} {
		resp, err := http.Get(srv.URL + url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, url)
	}
}

func TestListAllocationsReturnsEmptyArray(t *testing.T) {
	srv := newTestServer(&fakeLedger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/allocations?sku=WIDGET1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []domain.StockAllocation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
