package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _, _ := newTestService()
	r := chi.NewRouter()
	r.Route("/api/products", NewHandler(nil, svc).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr.Code, env
}

func TestHandlerCreateGetDelete(t *testing.T) {
	router := newTestRouter(t)

	code, env := do(t, router, http.MethodPost, "/api/products", `{"sku":"A1","name":"Red Pen","price":"1.5"}`)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)
	var created Product
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = do(t, router, http.MethodGet, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	code, env = do(t, router, http.MethodDelete, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	code, env = do(t, router, http.MethodGet, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)
	require.Equal(t, "null", string(env.Data))
}

func TestHandlerValidationEnvelope(t *testing.T) {
	router := newTestRouter(t)

	code, env := do(t, router, http.MethodPost, "/api/products", `{"name":"No SKU"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.False(t, env.Success)
	require.Contains(t, env.Fields, "sku")
}

func TestHandlerRejectsBadFilter(t *testing.T) {
	router := newTestRouter(t)
	code, env := do(t, router, http.MethodGet, "/api/products?is_active=maybe", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, env.Success)
}

func TestHandlerUpdateMissingIsNotFound(t *testing.T) {
	router := newTestRouter(t)
	code, env := do(t, router, http.MethodPatch, "/api/products/missing", `{"name":"x"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, env.Success)
}
