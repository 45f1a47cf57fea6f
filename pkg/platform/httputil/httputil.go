// Package httputil writes the JSON bodies every handler shares, so
// status mapping and error shapes stay uniform across the API.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "credchain/pkg/domain-errors"
)

// WriteJSON writes v with the given status. Once the header is out
// there is no useful way to report an encoding failure, so it is
// dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error onto the wire: the code picks the
// status and becomes the error field, the message rides along as
// error_description unless the code withholds detail from clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if desc := dErrors.Description(err); desc != "" {
		body["error_description"] = desc
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeJSON decodes a request body into dst. Malformed bodies come
// back as bad_request so handlers can pass the error straight to
// WriteError.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body")
	}
	return nil
}

// Validatable is implemented by request types that normalize and
// validate themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate
// method, writing the error response itself on either failure. Callers
// name only the request type and bail out when ok is false:
//
//	req, ok := httputil.DecodeAndPrepare[SomeRequest](w, r, logger, ctx, requestID)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any, PT interface {
	Validatable
	*T
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body"))
		var zero PT
		return zero, false
	}
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		var zero PT
		return zero, false
	}
	return req, true
}
