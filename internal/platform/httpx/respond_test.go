package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/shared"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", shared.FieldError("sku", "is required"), http.StatusUnprocessableEntity},
		{"not found", shared.NewNotFoundError("product", "p1"), http.StatusNotFound},
		{"conflict", shared.ErrConcurrencyConflict, http.StatusConflict},
		{"storage", shared.NewStorageError("insert", errors.New("disk full")), http.StatusServiceUnavailable},
		{"retries exhausted", shared.NewStorageError("transaction after 3 attempts", shared.ErrConcurrencyConflict), http.StatusServiceUnavailable},
		{"unknown", errors.New("kaboom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil, tc.err)
			require.Equal(t, tc.status, rr.Code)
			env := decode(t, rr)
			require.False(t, env.Success)
			require.NotEmpty(t, env.Error)
		})
	}
}

func TestRespondErrorCarriesFieldsAndHidesInternals(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil, shared.FieldError("sku", "already exists"))
	env := decode(t, rr)
	require.Equal(t, "already exists", env.Fields["sku"])

	rr = httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil, errors.New("secret stack detail"))
	require.Equal(t, "internal error", decode(t, rr).Error)

	rr = httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil, shared.NewStorageError("commit", errors.New("busy")))
	require.True(t, decode(t, rr).Retryable)

	rr = httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil, shared.NewStorageError("transaction after 3 attempts", shared.ErrConcurrencyConflict))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.True(t, decode(t, rr).Retryable)
}

func TestOKEnvelopeKeepsNullData(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, nil)
	require.JSONEq(t, `{"success":true,"data":null}`, rr.Body.String())
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrBadRequest)
}
