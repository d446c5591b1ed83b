package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerly/ledgerly/internal/platform/httpx"
	"github.com/ledgerly/ledgerly/internal/shared"
)

// Middleware resolves the bearer token into a shared.Identity. When the
// verifier has no secret the request passes through anonymously.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httpx.RespondError(w, r, logger, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, ErrMissingToken))
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				if logger != nil {
					logger.Debug("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, r, logger, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, ErrInvalidToken))
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
}
