package middleware

import (
	"log/slog"
	"net/http"

	"credchain/internal/platform/secrets"
	"credchain/pkg/requestcontext"
)

// RequireAdminToken gates revocation and other operator endpoints. The
// expected token is configured as a bcrypt hash so a leaked config file
// does not leak the token itself.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" || secrets.Verify(token, tokenHash) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
