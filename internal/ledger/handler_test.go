package ledger

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	handler := NewHandler(logger, NewService(repo, nil, nil))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestHandlerStoreInventory(t *testing.T) {
	repo := newMemoryRepo()
	repo.names[1] = "Cafe Touba"
	seedStock(t, repo, 1, 1, 40)
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/1/inventory", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Cafe Touba"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/abc/inventory", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerInventoryExport(t *testing.T) {
	repo := newMemoryRepo()
	repo.names[1] = "Cafe Touba"
	seedStock(t, repo, 1, 1, 40)
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/1/inventory/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Body.Bytes())
}

func TestHandlerAdjustments(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(t, repo, 1, 1, 60)
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ledger/adjustments",
		strings.NewReader(`{"adjustments":[{"product_id":1,"store_id":1,"counted_qty":55,"inventory_reference":"INV-2024-03"}]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"new_qty":55`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/ledger/adjustments", strings.NewReader(`{"adjustments":[]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTransferInsufficient(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(t, repo, 1, 1, 5)
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ledger/transfers",
		strings.NewReader(`{"transfers":[{"product_id":1,"from_store_id":1,"to_store_id":2,"quantity":10}]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}
