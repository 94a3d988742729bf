package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/workers"
)

// IdempotencyHeader carries the client key that de-duplicates ticket submits.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	req.UserID = shared.ActorFromContext(r.Context())
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	sale, err := h.service.CreateSale(r.Context(), req)
	if err != nil {
		h.fail(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, to, err := httpx.ParseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sales, err := h.service.ListSales(r.Context(), ListFilter{From: from, To: to, Limit: limit})
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, workers.ErrWorkerNotFound), errors.Is(err, inventory.ErrIngredientNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrEmptySale), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPaymentMethod):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.RespondError(w, httpx.Classify(httpx.ErrDuplicate, err))
	case errors.Is(err, ErrCannotPrepare), errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, cashregister.ErrNoOpenRegister), errors.Is(err, workers.ErrWorkerInactive):
		httpx.RespondError(w, httpx.Classify(httpx.ErrBusinessRule, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
