package httptransport

import (
	"net/http"
	"time"

	"credchain/pkg/platform/httputil"
	"credchain/pkg/requestcontext"
)

// HandleStartSession handles POST /v1/session requests. Starting a
// session generates the holder keypair, restores any persisted chain,
// and mints the bearer token that gates the rest of the API.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sess, err := h.vault.StartSession(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "session start failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	publicKey, err := sess.PublicKey()
	if err != nil {
		h.logger.ErrorContext(ctx, "public key encoding failed",
			"request_id", requestID,
			"session_id", sess.ID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(sess.ID(), requestcontext.DeviceFingerprint(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "session token issuance failed",
			"request_id", requestID,
			"session_id", sess.ID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session started",
		"request_id", requestID,
		"session_id", sess.ID(),
		"restored", sess.Restored(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, NewSessionResponse(sess, publicKey, token, expiresAt))
}
