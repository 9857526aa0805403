package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/RaikyD/orders-etl-service/internal/application"
	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
	"github.com/RaikyD/orders-etl-service/internal/presentation/helpers"
)

const maxUploadBytes = 32 << 20

// Pinger is what /health needs from the queue and the sinks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type OrdersHandler struct {
	ingest *application.IngestService
	query  *application.QueryService
	queue  Pinger
	store  Pinger
}

func NewOrdersHandler(ingest *application.IngestService, query *application.QueryService, queue, store Pinger) *OrdersHandler {
	return &OrdersHandler{ingest: ingest, query: query, queue: queue, store: store}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/upload/{source}", h.Upload)
	r.Get("/orders/clean", h.ListClean)
	r.Get("/orders/error", h.ListError)
	r.Get("/health", h.Health)
}

func (h *OrdersHandler) Upload(w http.ResponseWriter, r *http.Request) {
	source, ok := domain.ParseSource(chi.URLParam(r, "source"))
	if !ok {
		helpers.HttpError(w, http.StatusBadRequest, "source must be 'online' or 'offline'")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "expected multipart/form-data with a 'file' field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	published, err := h.ingest.Ingest(r.Context(), source, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedInput):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrQueueUnavailable):
			// honest about partial publication: already-published rows are
			// safe to re-upload, downstream writes are idempotent
			helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"detail":    "queue unavailable",
				"published": published,
			})
		default:
			logger.Error("upload failed", "err", err)
			helpers.HttpError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{"published": published})
}

type orderItem struct {
	OrderID      string  `json:"order_id"`
	Source       string  `json:"source"`
	OrderDate    *string `json:"order_date"`
	CustomerID   *string `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	TotalAmount  any     `json:"total_amount"`
	Status       string  `json:"status"`
	CreatedAt    *string `json:"created_at"`
	ErrorReason  string  `json:"error_reason,omitempty"`
}

func (h *OrdersHandler) ListClean(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r)
	records, err := h.query.ListClean(r.Context(), limit)
	if err != nil {
		logger.Error("list clean failed", "err", err)
		helpers.HttpError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	items := make([]orderItem, 0, len(records))
	for _, rec := range records {
		items = append(items, cleanItem(rec))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *OrdersHandler) ListError(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r)
	records, err := h.query.ListRejected(r.Context(), limit)
	if err != nil {
		logger.Error("list error failed", "err", err)
		helpers.HttpError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	items := make([]orderItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rejectedItem(rec))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *OrdersHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unreachable"})
		return
	}
	if err := h.queue.Ping(ctx); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "queue unreachable"})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func limitParam(r *http.Request) int {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 {
			limit = v
		}
	}
	return limit
}

func cleanItem(rec domain.CleanOrder) orderItem {
	item := orderItem{
		OrderID:      rec.OrderID,
		Source:       string(rec.Source),
		CustomerID:   rec.CustomerID,
		CustomerName: rec.CustomerName,
		// fixed-point internally, widened to a JSON number at the boundary
		TotalAmount: json.Number(rec.TotalAmount.String()),
		Status:      rec.Status,
	}
	if rec.OrderDate != nil {
		d := rec.OrderDate.Format("2006-01-02")
		item.OrderDate = &d
	}
	if !rec.CreatedAt.IsZero() {
		ts := rec.CreatedAt.Format(time.RFC3339)
		item.CreatedAt = &ts
	}
	return item
}

func rejectedItem(rec domain.RejectedOrder) orderItem {
	item := orderItem{
		OrderID:      rec.OrderID,
		Source:       string(rec.Source),
		CustomerName: rec.CustomerName,
		Status:       rec.Status,
		ErrorReason:  rec.Reason,
	}
	if rec.OrderDate != "" {
		d := rec.OrderDate
		item.OrderDate = &d
	}
	if rec.CustomerID != "" {
		id := rec.CustomerID
		item.CustomerID = &id
	}
	// raw text preserved for diagnosis; emit a number only when it parses
	if rec.TotalAmount != "" {
		if d, err := decimal.NewFromString(rec.TotalAmount); err == nil {
			item.TotalAmount = json.Number(d.String())
		} else {
			item.TotalAmount = rec.TotalAmount
		}
	}
	if !rec.CreatedAt.IsZero() {
		ts := rec.CreatedAt.Format(time.RFC3339)
		item.CreatedAt = &ts
	}
	return item
}
