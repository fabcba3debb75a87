package purchasing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/quartermaster-app/quartermaster/internal/platform/httpx"
)

const rateLimit = 30
const rateWindow = time.Minute

// Handler wires HTTP endpoints for purchasing.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs purchasing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
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
	r.Get("/purchases", h.handleList)
	r.Get("/purchases/{purchaseID}", h.handleGet)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/purchases", h.handleCreate)
		gr.Post("/purchases/{purchaseID}/receive", h.handleReceive)
		gr.Patch("/purchases/{purchaseID}/status", h.handleStatusOverride)
		gr.Delete("/purchases/{purchaseID}", h.handleDelete)
	})
}

type purchaseLineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	StoreID   int64   `json:"store_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type createPurchaseRequest struct {
	SupplierName string                `json:"supplier_name" validate:"required,max=200"`
	BCNumber     *string               `json:"bc_number" validate:"omitempty,max=100"`
	ReceiptURL   *string               `json:"receipt_url" validate:"omitempty,url"`
	Lines        []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type receiptRequest struct {
	PurchaseItemID   int64   `json:"purchase_item_id" validate:"required,gt=0"`
	QuantityReceived float64 `json:"quantity_received" validate:"required,gt=0"`
}

type receiveRequest struct {
	Receipts []receiptRequest `json:"receipts" validate:"required,min=1,dive"`
}

type statusOverrideRequest struct {
	Status string `json:"status" validate:"required,max=50"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{
		SupplierName: req.SupplierName,
		BCNumber:     req.BCNumber,
		ReceiptURL:   req.ReceiptURL,
		Lines:        make([]LineInput, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductID: line.ProductID,
			StoreID:   line.StoreID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	purchase, items, err := h.service.CreatePurchase(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("purchase created", slog.Int64("purchase_id", purchase.ID), slog.Int("lines", len(items)))
	httpx.JSON(w, http.StatusCreated, map[string]any{"purchase": purchase, "items": items})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	purchases, err := h.service.List(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	purchase, items, err := h.service.Get(r.Context(), purchaseID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase": purchase, "items": items})
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipts := make([]Receipt, 0, len(req.Receipts))
	for _, rec := range req.Receipts {
		receipts = append(receipts, Receipt{PurchaseItemID: rec.PurchaseItemID, QuantityReceived: rec.QuantityReceived})
	}
	status, err := h.service.ReceiveItems(r.Context(), purchaseID, receipts)
	if err != nil {
		h.logger.Error("receive items", slog.Int64("purchase_id", purchaseID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("items received", slog.Int64("purchase_id", purchaseID), slog.String("status", string(status)))
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_id": purchaseID, "status": status})
}

func (h *Handler) handleStatusOverride(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	var req statusOverrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.OverrideStatus(r.Context(), purchaseID, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_id": purchaseID, "status": req.Status})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	if err := h.service.DeletePurchase(r.Context(), purchaseID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_id": purchaseID, "deleted": true})
}
