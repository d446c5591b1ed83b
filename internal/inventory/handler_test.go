package inventory

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

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, nil).MountRoutes)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr.Code, env
}

func TestHandlerRecordMovementAndHistory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	idem := &memoryIdempotency{keys: map[string]bool{}}
	router := newTestRouter(newTestService(repo, ServiceConfig{AllowNegativeStock: true}, WithIdempotency(idem)))
	headers := map[string]string{IdempotencyHeader: "req-1"}

	code, env := doJSON(t, router, http.MethodPost, "/api/stock/movements", `{"product_id":"p1","kind":"sale","quantity":-4}`, headers)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)
	var m Movement
	require.NoError(t, json.Unmarshal(env.Data, &m))
	require.Equal(t, int64(6), m.QuantityAfter)

	code, env = doJSON(t, router, http.MethodPost, "/api/stock/movements", `{"product_id":"p1","kind":"sale","quantity":-4}`, headers)
	require.Equal(t, http.StatusConflict, code)
	require.False(t, env.Success)

	code, env = doJSON(t, router, http.MethodGet, "/api/stock/products/p1/history", "", nil)
	require.Equal(t, http.StatusOK, code)
	var history []Movement
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
}

func TestHandlerValidationAndNotFound(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	router := newTestRouter(newTestService(repo, ServiceConfig{AllowNegativeStock: true}))

	code, env := doJSON(t, router, http.MethodPost, "/api/stock/movements", `{"product_id":"p1","kind":"purchase","quantity":-1}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Contains(t, env.Fields, "quantity")

	code, _ = doJSON(t, router, http.MethodPost, "/api/stock/movements", `{"product_id":"p1","kind":"purchase","qty":1}`, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, env = doJSON(t, router, http.MethodGet, "/api/stock/products/zzz/history", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)
	require.JSONEq(t, `[]`, string(env.Data))
}

func TestHandlerBatchVerifyAndAlerts(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 12)
	router := newTestRouter(newTestService(repo, ServiceConfig{AllowNegativeStock: true}))

	code, env := doJSON(t, router, http.MethodPost, "/api/stock/movements/batch",
		`{"atomic":false,"movements":[{"product_id":"p1","kind":"sale","quantity":-5},{"product_id":"p1","kind":"sale","quantity":5}]}`, nil)
	require.Equal(t, http.StatusOK, code)
	var results []BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[0].Movement)
	require.NotEmpty(t, results[1].Error)

	code, env = doJSON(t, router, http.MethodGet, "/api/stock/products/p1/verify", "", nil)
	require.Equal(t, http.StatusOK, code)
	var report VerifyReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.True(t, report.Consistent)

	code, env = doJSON(t, router, http.MethodGet, "/api/stock/alerts", "", nil)
	require.Equal(t, http.StatusOK, code)
	var alerts []Alert
	require.NoError(t, json.Unmarshal(env.Data, &alerts))
	require.Len(t, alerts, 1)
}
