package catalog

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
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestHandlerCreateAndShow(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Taco","price":3.5,"cost":1}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "Taco", created.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Taco","price":0}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"Price":"gt"`)
}

func TestHandlerUnknownProduct(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}
