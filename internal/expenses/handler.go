package expenses

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

// Handler wires HTTP endpoints for expenses.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs expenses handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, to, err := httpx.ParseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListByRange(r.Context(), from, to)
	if err != nil {
		h.fail(w, "list expenses", err)
		return
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateExpenseInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	expense, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	expense, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, inventory.ErrIngredientNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrInvalidExpense), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	case errors.Is(err, cashregister.ErrNoOpenRegister):
		httpx.RespondError(w, httpx.Classify(httpx.ErrBusinessRule, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
