package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartermaster-app/quartermaster/internal/ledger"
	"github.com/quartermaster-app/quartermaster/internal/masterdata/items"
	"github.com/quartermaster-app/quartermaster/internal/masterdata/stores"
	"github.com/quartermaster-app/quartermaster/internal/purchasing"
	"github.com/quartermaster-app/quartermaster/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	LedgerHandler     *ledger.Handler
	PurchasingHandler *purchasing.Handler
	SalesHandler      *sales.Handler
	ItemsHandler      *items.Handler
	StoresHandler     *stores.Handler
	Pool              *pgxpool.Pool
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		params.LedgerHandler.MountRoutes(api)
		params.PurchasingHandler.MountRoutes(api)
		params.SalesHandler.MountRoutes(api)
		params.ItemsHandler.MountRoutes(api)
		params.StoresHandler.MountRoutes(api)
	})

	return r
}
