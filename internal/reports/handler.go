package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

// PDFRenderer prints the daily summary.
type PDFRenderer interface {
	RenderDaily(ctx context.Context, daily Daily) ([]byte, error)
}

// Handler wires HTTP endpoints for reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pdf     PDFRenderer
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// WithPDF enables GET /daily.pdf.
func (h *Handler) WithPDF(renderer PDFRenderer) *Handler {
	h.pdf = renderer
	return h
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profit", h.profit)
	r.Get("/daily", h.daily)
	r.Get("/daily.pdf", h.dailyPDF)
	r.Get("/growth", h.growth)
}

func (h *Handler) profit(w http.ResponseWriter, r *http.Request) {
	from, to, err := httpx.ParseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.Profit(r.Context(), from, to)
	if err != nil {
		h.fail(w, "profit report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadDaily(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) dailyPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf rendering is not configured")
		return
	}
	report, ok := h.loadDaily(w, r)
	if !ok {
		return
	}
	doc, err := h.pdf.RenderDaily(r.Context(), report)
	if err != nil {
		h.logger.Error("render daily pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="daily-`+report.Date.Format("2006-01-02")+`.pdf"`)
	_, _ = w.Write(doc)
}

func (h *Handler) loadDaily(w http.ResponseWriter, r *http.Request) (Daily, bool) {
	var day time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, httpx.Classify(httpx.ErrValidation, err))
			return Daily{}, false
		}
		day = parsed
	}
	report, err := h.service.Daily(r.Context(), day)
	if err != nil {
		h.fail(w, "daily report", err)
		return Daily{}, false
	}
	return report, true
}

func (h *Handler) growth(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Growth(r.Context())
	if err != nil {
		h.fail(w, "growth report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
