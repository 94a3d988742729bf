package sales

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/shared"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idem := &memoryIdempotency{keys: make(map[string]bool)}
	h := NewHandler(logger, NewService(repo, nil, idem, nil, nil, logger, ServiceConfig{}))
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	h.MountRoutes(r)
	return r
}

func TestHandlerCreateSale(t *testing.T) {
	repo := newMemoryRepo()
	repo.register = &cashregister.Register{ID: "reg", Status: cashregister.StatusOpen}
	repo.products["taco"] = catalog.Product{ID: "taco", Name: "Taco", Price: 3}
	router := newTestRouter(repo)

	body := `{"items":[{"product_id":"taco","quantity":2}],"payment_method":"CARD"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(shared.ActorHeader, "cajero-1")
	req.Header.Set(IdempotencyHeader, "abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var sale Sale
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sale))
	require.InDelta(t, 6, sale.Total, 0.0001)
	require.Equal(t, "cajero-1", sale.UserID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, "abc")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/"+sale.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerCreateSaleErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.products["taco"] = catalog.Product{ID: "taco", Name: "Taco", Price: 3}
	router := newTestRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[],"payment_method":"CASH"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"items":[{"product_id":"taco","quantity":1}],"payment_method":"CASH"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "no open register")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
