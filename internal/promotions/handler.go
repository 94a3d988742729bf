package promotions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

// Handler wires HTTP endpoints for promotions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs promotions handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers promotion routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	promos, err := h.service.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.fail(w, "list promotions", err)
		return
	}
	if promos == nil {
		promos = []Promotion{}
	}
	httpx.JSON(w, http.StatusOK, promos)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreatePromotionInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	promo, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create promotion", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, promo)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	promo, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get promotion", err)
		return
	}
	httpx.JSON(w, http.StatusOK, promo)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "deactivate promotion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrPromotionNotFound), errors.Is(err, catalog.ErrProductNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrInvalidPromotion):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
