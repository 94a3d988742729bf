package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/comanda-pos/comanda/internal/audit"
	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/observability"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/promotions"
	"github.com/comanda-pos/comanda/internal/reports"
	"github.com/comanda-pos/comanda/internal/sales"
	"github.com/comanda-pos/comanda/internal/workers"
	"github.com/comanda-pos/comanda/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CatalogHandler      *catalog.Handler
	InventoryHandler    *inventory.Handler
	PromotionsHandler   *promotions.Handler
	WorkersHandler      *workers.Handler
	CashRegisterHandler *cashregister.Handler
	ExpensesHandler     *expenses.Handler
	SalesHandler        *sales.Handler
	ReportsHandler      *reports.Handler
	AuditHandler        *audit.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with comanda defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.PromotionsHandler != nil {
		r.Route("/promotions", params.PromotionsHandler.MountRoutes)
	}
	if params.WorkersHandler != nil {
		r.Route("/workers", params.WorkersHandler.MountRoutes)
	}
	if params.CashRegisterHandler != nil {
		r.Route("/cash-register", params.CashRegisterHandler.MountRoutes)
	}
	if params.ExpensesHandler != nil {
		r.Route("/expenses", params.ExpensesHandler.MountRoutes)
	}
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "no route for "+r.URL.Path)
	})
	return r
}
