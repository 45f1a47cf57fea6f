package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "credchain/pkg/domain"
	"credchain/pkg/requestcontext"
)

// SessionValidator defines the interface for validating session tokens.
type SessionValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the session validator.
type SessionClaims struct {
	SessionID         string
	JTI               string
	DeviceFingerprint string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireSession rejects requests that do not carry a valid bearer session
// token and stores the authenticated session ID in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			after, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(after)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			sessionID, err := id.ParseSessionID(claims.SessionID)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - malformed session claim",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithSessionID(r.Context(), sessionID)

			// Soft device binding: a fingerprint mismatch is logged, not
			// rejected, so browser upgrades don't strand sessions.
			if presented := requestcontext.DeviceFingerprint(ctx); presented != "" &&
				claims.DeviceFingerprint != "" && presented != claims.DeviceFingerprint {
				logger.WarnContext(ctx, "device fingerprint drift",
					"session_id", sessionID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
