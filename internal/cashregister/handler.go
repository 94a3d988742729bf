package cashregister

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

// Handler wires HTTP endpoints for register sessions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs cash register handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers cash register routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/current", h.current)
	r.Post("/open", h.open)
	r.Post("/close", h.close)
	r.Get("/history", h.history)
	r.Get("/{id}", h.show)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Current(r.Context())
	if err != nil {
		h.fail(w, "current register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var input OpenInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	reg, err := h.service.Open(r.Context(), input)
	if err != nil {
		h.fail(w, "open register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	var input CloseInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	reg, err := h.service.Close(r.Context(), input)
	if err != nil {
		h.fail(w, "close register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.fail(w, "register history", err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNoOpenRegister), errors.Is(err, ErrRegisterNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrRegisterAlreadyOpen):
		httpx.RespondError(w, httpx.Classify(httpx.ErrConflict, err))
	case errors.Is(err, ErrNegativeBalance), errors.Is(err, ErrInvalidAmount):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
