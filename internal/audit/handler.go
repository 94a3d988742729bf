package audit

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the timeline and its CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(exportRateLimit, exportRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		gr.Get("/export.csv", h.export)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"at", "actor", "action", "entity", "entity_id", "meta"})
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			if raw, err := json.Marshal(row.Meta); err == nil {
				meta = string(raw)
			}
		}
		_ = cw.Write([]string{row.At.UTC().Format(time.RFC3339), row.Actor, row.Action, row.Entity, row.EntityID, meta})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := httpx.ParseRange(r)
		if err != nil {
			return TimelineFilters{}, err
		}
		filters.From, filters.To = from, to
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return TimelineFilters{}, httpx.Classify(httpx.ErrValidation, err)
		}
		filters.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return TimelineFilters{}, httpx.Classify(httpx.ErrValidation, err)
		}
		filters.PageSize = size
	}
	return filters, nil
}
