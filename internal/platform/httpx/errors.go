// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("malformed request")
)

// StatusFor maps an error from the domain layer to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrStorage):
		// Includes conflicts that outlasted the transaction retries.
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrConcurrencyConflict), errors.Is(err, ErrConflict), errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError converts err into a failure envelope. Unknown errors are logged and
// reported without internal detail.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	env := Envelope{Success: false, Error: err.Error()}

	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		env.Fields = verr.Fields
	}
	switch status {
	case http.StatusInternalServerError:
		env.Error = "internal error"
		fallthrough
	case http.StatusServiceUnavailable:
		if logger != nil {
			logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
	}
	if status == http.StatusServiceUnavailable {
		env.Retryable = true
	}
	JSON(w, status, env)
}
