package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/billforge/billforge/internal/platform/httpx"
)

func newTestRouter(t *testing.T) (*fixture, chi.Router) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc, validator.New(), slog.Default())
	r := chi.NewRouter()
	h.Mount(r)
	return f, r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandlerCreateAndGet(t *testing.T) {
	_, r := newTestRouter(t)

	rec, env := doJSON(t, r, http.MethodPost, "/salebills", baseCreateRequest())
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	data := env.Data.(map[string]any)
	require.Equal(t, "SB-00001", data["bill_number"])
	require.Equal(t, "issued", data["status"])
	require.Equal(t, 59.0, data["grand_total"])

	id := int64(data["id"].(float64))
	rec, env = doJSON(t, r, http.MethodGet, fmt.Sprintf("/salebills/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestHandlerValidationFailure(t *testing.T) {
	_, r := newTestRouter(t)

	req := baseCreateRequest()
	req.Items = nil
	rec, env := doJSON(t, r, http.MethodPost, "/salebills", req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.NotEmpty(t, env.Message)
}

func TestHandlerNotFound(t *testing.T) {
	_, r := newTestRouter(t)

	rec, env := doJSON(t, r, http.MethodGet, "/salebills/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, env.Success)
}

func TestHandlerCancelBothRouteShapes(t *testing.T) {
	f, r := newTestRouter(t)

	_, env := doJSON(t, r, http.MethodPost, "/salebills", baseCreateRequest())
	first := int64(env.Data.(map[string]any)["id"].(float64))
	_, env = doJSON(t, r, http.MethodPost, "/salebills", baseCreateRequest())
	second := int64(env.Data.(map[string]any)["id"].(float64))

	rec, env := doJSON(t, r, http.MethodPut, fmt.Sprintf("/salebills/%d/cancel", first), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	rec, env = doJSON(t, r, http.MethodPut, fmt.Sprintf("/salebills/cancel/%d", second), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	// double cancel is a client error
	rec, env = doJSON(t, r, http.MethodPut, fmt.Sprintf("/salebills/%d/cancel", first), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)

	require.Equal(t, 100.0, f.store.products[1].Quantity)
}

func TestHandlerListAndSummary(t *testing.T) {
	_, r := newTestRouter(t)

	_, _ = doJSON(t, r, http.MethodPost, "/salebills", baseCreateRequest())
	_, _ = doJSON(t, r, http.MethodPost, "/purchasebills", baseCreateRequest())

	rec, env := doJSON(t, r, http.MethodGet, "/salebills?status=issued", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]any)
	require.Equal(t, 1.0, data["total"])

	rec, env = doJSON(t, r, http.MethodGet, "/salebills?status=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)

	rec, env = doJSON(t, r, http.MethodGet, "/billing/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	combined := env.Data.(map[string]any)
	require.Contains(t, combined, "saleBills")
	require.Contains(t, combined, "purchaseBills")
}
