// Package requestcontext carries request-scoped values between middleware
// and the vault services without either side importing net/http. Middleware
// writes with the With* setters; services and the audit pipeline read with
// the matching getters, which return zero values when nothing was set.
package requestcontext

import (
	"context"
	"time"

	id "credchain/pkg/domain"
)

type (
	sessionIDKey         struct{}
	requestIDKey         struct{}
	clientIPKey          struct{}
	userAgentKey         struct{}
	deviceKey            struct{}
	deviceFingerprintKey struct{}
	requestTimeKey       struct{}
)

// SessionID retrieves the authenticated vault session ID.
// Returns the nil UUID when no session was established.
func SessionID(ctx context.Context) id.SessionID {
	if sessionID, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return sessionID
	}
	return id.SessionID{}
}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// RequestID retrieves the per-request correlation ID.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// ClientIP retrieves the client IP address captured by middleware.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent header.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent together, the way the
// metadata middleware sets them. Service tests use it to skip the HTTP chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// Device retrieves the parsed device summary ("browser on OS").
func Device(ctx context.Context) string {
	if dev, ok := ctx.Value(deviceKey{}).(string); ok {
		return dev
	}
	return ""
}

// WithDevice injects a parsed device summary into the context.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

// DeviceFingerprint retrieves the hashed device fingerprint that session
// tokens are bound to.
func DeviceFingerprint(ctx context.Context) string {
	if fp, ok := ctx.Value(deviceFingerprintKey{}).(string); ok {
		return fp
	}
	return ""
}

// WithDeviceFingerprint injects a device fingerprint into the context.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, deviceFingerprintKey{}, fingerprint)
}

// Now retrieves the request-scoped time, so every component observing one
// request shares a single timestamp. Falls back to time.Now for callers
// outside the HTTP chain (chainctl, workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
