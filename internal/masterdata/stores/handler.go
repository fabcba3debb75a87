package stores

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quartermaster-app/quartermaster/internal/platform/httpx"
)

// Handler wires HTTP endpoints for stores.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs stores handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers store routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/stores", h.handleList)
	r.Get("/stores/{storeID}", h.handleGet)
	r.Post("/stores", h.handleCreate)
	r.Put("/stores/{storeID}", h.handleUpdate)
	r.Delete("/stores/{storeID}", h.handleDelete)
}

type storeRequest struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Zones []string `json:"zones" validate:"omitempty,dive,required,max=100"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	store, err := h.service.Create(r.Context(), Input{Name: req.Name, Zones: req.Zones})
	if err != nil {
		h.logger.Error("create store", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("store created", slog.Int64("store_id", store.ID), slog.String("code", store.Code))
	httpx.JSON(w, http.StatusCreated, map[string]any{"store": store})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store id")
		return
	}
	var req storeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	store, err := h.service.Update(r.Context(), storeID, Input{Name: req.Name, Zones: req.Zones})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store": store})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store id")
		return
	}
	if err := h.service.Delete(r.Context(), storeID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store_id": storeID, "deleted": true})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid store id")
		return
	}
	store, err := h.service.Get(r.Context(), storeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"store": store})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	stores, err := h.service.List(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stores": stores})
}
