package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"credchain/internal/device"
	"credchain/internal/platform/metrics"
	"credchain/internal/platform/secrets"
	"credchain/pkg/requestcontext"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates an ID when absent", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Fatal("expected a request ID in the context")
		}
		if got := rec.Header().Get("X-Request-ID"); got != seen {
			t.Fatalf("header %q does not match context %q", got, seen)
		}
	})

	t.Run("preserves an inbound ID", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "upstream-id" {
			t.Fatalf("expected upstream-id, got %q", seen)
		}
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatalf("expected internal_error envelope, got %s", rec.Body.String())
	}
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(okHandler())

	t.Run("rejects non-JSON bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("accepts JSON bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("ignores bodyless requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

type stubValidator struct {
	claims *SessionClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*SessionClaims, error) {
	return s.claims, s.err
}

func TestRequireSession(t *testing.T) {
	const sessionID = "550e8400-e29b-41d4-a716-446655440000"

	t.Run("missing header is rejected", func(t *testing.T) {
		h := RequireSession(stubValidator{}, testLogger())(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		h := RequireSession(stubValidator{err: errors.New("expired")}, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed session claim is rejected", func(t *testing.T) {
		h := RequireSession(stubValidator{claims: &SessionClaims{SessionID: "not-a-uuid"}}, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token reaches the handler with session in context", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.SessionID(r.Context()).String()
		})
		h := RequireSession(stubValidator{claims: &SessionClaims{SessionID: sessionID}}, testLogger())(inner)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if seen != sessionID {
			t.Fatalf("expected session %s in context, got %q", sessionID, seen)
		}
	})

	t.Run("fingerprint drift is logged but allowed", func(t *testing.T) {
		h := RequireSession(stubValidator{claims: &SessionClaims{
			SessionID:         sessionID,
			DeviceFingerprint: "issued-on-another-device",
		}}, testLogger())(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		req = req.WithContext(requestcontext.WithDeviceFingerprint(req.Context(), "current-device"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected drifted session to still pass, got %d", rec.Code)
		}
	})
}

func TestRequireAdminToken(t *testing.T) {
	hash, err := secrets.Hash("op-token")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := RequireAdminToken(hash, testLogger())(okHandler())

	t.Run("missing token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-Token", "guess")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("correct token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-Token", "op-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("burst exhaustion returns 429", func(t *testing.T) {
		h := RateLimit(1, 1, testLogger())(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("first request should pass, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second request should be limited, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
	})

	t.Run("limits are per client IP", func(t *testing.T) {
		h := RateLimit(1, 1, testLogger())(okHandler())

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest(http.MethodGet, "/", nil)
		second.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, second)

		if rec.Code != http.StatusOK {
			t.Fatalf("distinct IP should not be limited, got %d", rec.Code)
		}
	})

	t.Run("disabled mode passes everything", func(t *testing.T) {
		h := RateLimit(0, 0, testLogger(), WithRateLimitDisabled(true))(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		for range 5 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 with limiting disabled, got %d", rec.Code)
			}
		}
	})
}

func TestClientMetadataAndDevice(t *testing.T) {
	svc := device.NewService(true)

	var gotIP, gotDevice, gotFingerprint string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotDevice = requestcontext.Device(r.Context())
		gotFingerprint = requestcontext.DeviceFingerprint(r.Context())
	})
	h := ClientMetadata(DeviceContext(svc)(inner))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotIP != "203.0.113.7" {
		t.Fatalf("expected first XFF hop, got %q", gotIP)
	}
	if !strings.Contains(gotDevice, "Firefox") {
		t.Fatalf("expected parsed device name, got %q", gotDevice)
	}
	if len(gotFingerprint) != 64 {
		t.Fatalf("expected SHA-256 fingerprint, got %q", gotFingerprint)
	}
}

func TestLatencyLabelsByRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Latency(m))
	r.Get("/v1/blocks/{index}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/blocks/7", nil))

	if got := testutil.CollectAndCount(m.HTTPLatency); got != 1 {
		t.Fatalf("expected one latency series, got %d", got)
	}
}
