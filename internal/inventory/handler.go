package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ingredients", h.listIngredients)
	r.Post("/ingredients", h.createIngredient)
	r.Get("/ingredients/low-stock", h.listLowStock)
	r.Get("/ingredients/{id}", h.showIngredient)
	r.Patch("/ingredients/{id}", h.updateIngredient)
	r.Post("/restock", h.restock)
	r.Post("/adjust", h.adjust)
	r.Post("/consume", h.consume)
	r.Get("/movements", h.listMovements)
	r.Post("/recipes", h.link)
	r.Get("/recipes/{productID}", h.listRecipe)
	r.Delete("/recipes/{productID}/{ingredientID}", h.unlink)
	r.Get("/availability", h.availability)
}

func (h *Handler) listIngredients(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListIngredients(r.Context())
	if err != nil {
		h.fail(w, "list ingredients", err)
		return
	}
	if items == nil {
		items = []Ingredient{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLowStock(r.Context())
	if err != nil {
		h.fail(w, "list low stock", err)
		return
	}
	if items == nil {
		items = []Ingredient{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createIngredient(w http.ResponseWriter, r *http.Request) {
	var input CreateIngredientInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	ingredient, err := h.service.CreateIngredient(r.Context(), input)
	if err != nil {
		h.fail(w, "create ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ingredient)
}

func (h *Handler) showIngredient(w http.ResponseWriter, r *http.Request) {
	ingredient, err := h.service.GetIngredient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ingredient)
}

func (h *Handler) updateIngredient(w http.ResponseWriter, r *http.Request) {
	var input UpdateIngredientInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	ingredient, err := h.service.UpdateIngredient(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ingredient)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var input RestockInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	input.UserID = shared.ActorFromContext(r.Context())
	movement, err := h.service.Restock(r.Context(), input)
	if err != nil {
		h.fail(w, "restock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var input AdjustInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	input.UserID = shared.ActorFromContext(r.Context())
	movement, err := h.service.Adjust(r.Context(), input)
	if err != nil {
		h.fail(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	var req ConsumeRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = shared.ActorFromContext(r.Context())
	}
	movements, err := h.service.ConsumeIngredients(r.Context(), req)
	if err != nil {
		h.fail(w, "consume ingredients", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movements)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{IngredientID: q.Get("ingredient_id"), SaleID: q.Get("sale_id")}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := httpx.ParseRange(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.From, filter.To = from, to
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) link(w http.ResponseWriter, r *http.Request) {
	var input LinkInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	line, err := h.service.LinkIngredient(r.Context(), input)
	if err != nil {
		h.fail(w, "link ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) listRecipe(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.ListRecipe(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, "list recipe", err)
		return
	}
	if lines == nil {
		lines = []RecipeLine{}
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UnlinkIngredient(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "ingredientID")); err != nil {
		h.fail(w, "unlink ingredient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Availability(r.Context(), r.URL.Query().Get("product_id"))
	if err != nil {
		h.fail(w, "evaluate availability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrIngredientNotFound), errors.Is(err, ErrRecipeLineNotFound), errors.Is(err, catalog.ErrProductNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrInvalidIngredient), errors.Is(err, ErrInvalidQuantity):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrNegativeStock):
		httpx.RespondError(w, httpx.Classify(httpx.ErrBusinessRule, err))
	case errors.Is(err, ErrDuplicateRecipeLine):
		httpx.RespondError(w, httpx.Classify(httpx.ErrDuplicate, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
