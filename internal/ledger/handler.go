package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/quartermaster-app/quartermaster/internal/platform/httpx"
)

const rateLimit = 30
const rateWindow = time.Minute

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	exports  singleflight.Group
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/stores/{storeID}/inventory", h.handleStoreInventory)
	r.Get("/stores/{storeID}/inventory/export.xlsx", h.handleInventoryExport)
	r.Get("/ledger/stock", h.handleCurrentStock)
	r.Get("/ledger/movements", h.handleMovements)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/ledger/adjustments", h.handleAdjustBatch)
		gr.Post("/ledger/transfers", h.handleTransferBatch)
	})
}

type adjustmentEntryRequest struct {
	ProductID          int64   `json:"product_id" validate:"required,gt=0"`
	StoreID            int64   `json:"store_id" validate:"required,gt=0"`
	CountedQty         float64 `json:"counted_qty" validate:"gte=0"`
	InventoryReference string  `json:"inventory_reference" validate:"required,max=100"`
}

type adjustBatchRequest struct {
	Adjustments []adjustmentEntryRequest `json:"adjustments" validate:"required,min=1,dive"`
}

type transferEntryRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	FromStoreID int64   `json:"from_store_id" validate:"required,gt=0"`
	ToStoreID   int64   `json:"to_store_id" validate:"required,gt=0"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
}

type transferBatchRequest struct {
	Transfers []transferEntryRequest `json:"transfers" validate:"required,min=1,dive"`
}

func (h *Handler) handleStoreInventory(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store id")
		return
	}
	inventory, err := h.service.StoreInventory(r.Context(), storeID)
	if err != nil {
		h.logger.Error("store inventory", slog.Int64("store_id", storeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store_id": storeID, "inventory": inventory})
}

func (h *Handler) handleInventoryExport(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store id")
		return
	}
	// Identical concurrent exports collapse into one workbook build.
	data, err, _ := h.exports.Do(strconv.FormatInt(storeID, 10), func() (any, error) {
		rows, err := h.service.StoreInventory(r.Context(), storeID)
		if err != nil {
			return nil, err
		}
		return WriteInventoryXLSX(storeID, rows)
	})
	if err != nil {
		h.logger.Error("inventory export", slog.Int64("store_id", storeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	_, _ = w.Write(data.([]byte))
}

func (h *Handler) handleCurrentStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, _ := strconv.ParseInt(q.Get("product_id"), 10, 64)
	storeID, _ := strconv.ParseInt(q.Get("store_id"), 10, 64)
	qty, err := h.service.CurrentStock(r.Context(), productID, storeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "store_id": storeID, "current_stock": qty})
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, _ := strconv.ParseInt(q.Get("product_id"), 10, 64)
	storeID, _ := strconv.ParseInt(q.Get("store_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	movements, err := h.service.Movements(r.Context(), MovementFilter{ProductID: productID, StoreID: storeID, Limit: limit})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) handleAdjustBatch(w http.ResponseWriter, r *http.Request) {
	var req adjustBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries := make([]AdjustmentEntry, 0, len(req.Adjustments))
	for _, a := range req.Adjustments {
		entries = append(entries, AdjustmentEntry{
			ProductID:          a.ProductID,
			StoreID:            a.StoreID,
			CountedQty:         a.CountedQty,
			InventoryReference: a.InventoryReference,
		})
	}
	results, err := h.service.AdjustBatch(r.Context(), entries)
	if err != nil {
		h.logger.Error("adjust batch", slog.Int("entries", len(entries)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("adjust batch applied", slog.Int("entries", len(results)))
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": results})
}

func (h *Handler) handleTransferBatch(w http.ResponseWriter, r *http.Request) {
	var req transferBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries := make([]TransferEntry, 0, len(req.Transfers))
	for _, t := range req.Transfers {
		entries = append(entries, TransferEntry{
			ProductID:   t.ProductID,
			FromStoreID: t.FromStoreID,
			ToStoreID:   t.ToStoreID,
			Quantity:    t.Quantity,
		})
	}
	results, err := h.service.TransferBatch(r.Context(), entries)
	if err != nil {
		h.logger.Error("transfer batch", slog.Int("entries", len(entries)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("transfer batch applied", slog.Int("entries", len(results)))
	httpx.JSON(w, http.StatusOK, map[string]any{"transfers": results})
}
