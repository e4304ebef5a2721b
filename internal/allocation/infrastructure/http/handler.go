package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/stockflow/allocation-service/internal/allocation/application"
	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

const (
	defaultListLimit = 20
	defaultSort      = domain.SortDesc
)

// Handler serves the read-only allocation surface. All mutation happens
// through the message stream.
type Handler struct {
	log    *slog.Logger
	svc    *application.Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc *application.Service) *Handler {
	return &Handler{
		log:    log,
		svc:    svc,
		tracer: otel.Tracer("allocation-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/allocations", h.listAllocations)
	r.Get("/allocations/{sku}/{orderID}", h.getAllocation)
	return r
}

func (h *Handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetAllocation")
	defer span.End()

	cmd, err := domain.NewGetAllocationCommand(chi.URLParam(r, "orderID"), chi.URLParam(r, "sku"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	row, err := h.svc.GetAllocation(ctx, cmd)
	if err != nil {
		h.log.Error("get allocation failed", "err", err)
		writeFailure(w, err)
		return
	}
	if row == nil {
		http.Error(w, `{"error":"allocation not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handler) listAllocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListAllocations")
	defer span.End()

	sort := defaultSort
	if s := r.URL.Query().Get("sort"); s != "" {
		parsed, err := domain.ParseSortDirection(s)
		if err != nil {
			writeFailure(w, err)
			return
		}
		sort = parsed
	}

	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			http.Error(w, `{"error":"limit must be an integer"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	cmd, err := domain.NewListAllocationsCommand(r.URL.Query().Get("sku"), sort, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	rows, err := h.svc.ListAllocations(ctx, cmd)
	if err != nil {
		h.log.Error("list allocations failed", "err", err)
		writeFailure(w, err)
		return
	}
	if rows == nil {
		rows = []domain.StockAllocation{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if domain.HasKind(err, domain.KindInvalidArguments) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
