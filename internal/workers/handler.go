package workers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

// Handler wires HTTP endpoints for workers and payroll.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs workers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers worker routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/earnings", h.earnings)
	r.Get("/participations", h.participations)
	r.Post("/manual-payments", h.manualPayment)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Get("/{id}/payments", h.payments)
	r.Post("/{id}/payments", h.pay)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	list, err := h.service.ListWorkers(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, "list workers", err)
		return
	}
	if list == nil {
		list = []Worker{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateWorkerInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	worker, err := h.service.CreateWorker(r.Context(), input)
	if err != nil {
		h.fail(w, "create worker", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, worker)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.GetWorker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get worker", err)
		return
	}
	httpx.JSON(w, http.StatusOK, worker)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input UpdateWorkerInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	worker, err := h.service.UpdateWorker(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update worker", err)
		return
	}
	httpx.JSON(w, http.StatusOK, worker)
}

func (h *Handler) earnings(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Earnings(r.Context(), r.URL.Query().Get("worker_id"))
	if err != nil {
		h.fail(w, "worker earnings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) participations(w http.ResponseWriter, r *http.Request) {
	filter := ParticipationFilter{WorkerID: r.URL.Query().Get("worker_id")}
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		from, to, err := httpx.ParseRange(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.From, filter.To = from, to
	}
	out, err := h.service.ListParticipations(r.Context(), filter)
	if err != nil {
		h.fail(w, "list participations", err)
		return
	}
	if out == nil {
		out = []Participation{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "list payments", err)
		return
	}
	if out == nil {
		out = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var input PayInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	payment, err := h.service.PayParticipations(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "pay worker", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) manualPayment(w http.ResponseWriter, r *http.Request) {
	var input ManualPaymentInput
	if !httpx.DecodeAndValidate(w, r, &input) {
		return
	}
	payment, err := h.service.ManualPayment(r.Context(), input)
	if err != nil {
		h.fail(w, "manual worker payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrWorkerNotFound):
		httpx.RespondError(w, httpx.Classify(httpx.ErrNotFound, err))
	case errors.Is(err, ErrInvalidWorker), errors.Is(err, ErrInvalidPayment):
		httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
	case errors.Is(err, ErrNothingPending), errors.Is(err, ErrExceedsPending),
		errors.Is(err, ErrWorkerInactive), errors.Is(err, cashregister.ErrNoOpenRegister):
		httpx.RespondError(w, httpx.Classify(httpx.ErrBusinessRule, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
