package testutil

import (
	"net/http"

	id "credchain/pkg/domain"
	"credchain/pkg/requestcontext"
)

// WithSessionID stamps a vault session id onto the request context,
// simulating what the session middleware does for an authenticated
// request. An unparseable id is silently ignored.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	parsed, err := id.ParseSessionID(sessionID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
}

// WithRequestID stamps a request id onto the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithClientMetadata stamps caller ip and user agent onto the request
// context, as the client metadata middleware would.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithDeviceFingerprint stamps a device fingerprint onto the request
// context, as the device middleware would.
func WithDeviceFingerprint(req *http.Request, fingerprint string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceFingerprint(req.Context(), fingerprint))
}
