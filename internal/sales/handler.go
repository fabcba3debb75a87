package sales

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

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
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
	r.Get("/sales", h.handleList)
	r.Get("/sales/{saleID}", h.handleGet)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/sales", h.handleCreate)
		gr.Post("/sales/{saleID}/returns", h.handleReturns)
		gr.Patch("/sales/{saleID}/status", h.handleStatusOverride)
		gr.Delete("/sales/{saleID}", h.handleDelete)
	})
}

type saleLineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	StoreID   int64   `json:"store_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type createSaleRequest struct {
	CustomerName    string            `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string            `json:"customer_phone" validate:"required,max=50"`
	CustomerAddress string            `json:"customer_address" validate:"required,max=500"`
	Lines           []saleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type returnLineRequest struct {
	SaleItemID int64   `json:"sale_item_id" validate:"required,gt=0"`
	Quantity   float64 `json:"quantity" validate:"required,gt=0"`
}

type returnsRequest struct {
	Returns []returnLineRequest `json:"returns" validate:"required,min=1,dive"`
}

type statusOverrideRequest struct {
	Status string `json:"status" validate:"required,max=50"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Lines:           make([]LineInput, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductID: line.ProductID,
			StoreID:   line.StoreID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	sale, items, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale created", slog.Int64("sale_id", sale.ID), slog.Int("lines", len(items)))
	httpx.JSON(w, http.StatusCreated, map[string]any{"sale": sale, "items": items})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sales, err := h.service.List(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, items, err := h.service.Get(r.Context(), saleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sale": sale, "items": items})
}

func (h *Handler) handleReturns(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	var req returnsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	returns := make([]ReturnLine, 0, len(req.Returns))
	for _, ret := range req.Returns {
		returns = append(returns, ReturnLine{SaleItemID: ret.SaleItemID, Quantity: ret.Quantity})
	}
	result, err := h.service.ReturnItems(r.Context(), saleID, returns)
	if err != nil {
		h.logger.Error("return items", slog.Int64("sale_id", saleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("items returned", slog.Int64("sale_id", saleID), slog.Int("returned", len(result.Returned)), slog.Int("skipped", len(result.Skipped)))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatusOverride(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
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
	if err := h.service.OverrideStatus(r.Context(), saleID, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sale_id": saleID, "status": req.Status})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	if err := h.service.DeleteSale(r.Context(), saleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sale_id": saleID, "deleted": true})
}
