package middleware

import (
	"net/http"

	"credchain/internal/device"
	"credchain/pkg/requestcontext"
)

// DeviceContext parses the User-Agent into a display name and fingerprint
// and stores both in the request context. Must run after ClientMetadata.
func DeviceContext(svc *device.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawUA := requestcontext.UserAgent(r.Context())

			ctx := requestcontext.WithDevice(r.Context(), device.ParseUserAgent(rawUA))
			ctx = requestcontext.WithDeviceFingerprint(ctx, svc.ComputeFingerprint(rawUA))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
