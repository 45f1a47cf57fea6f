// Package device parses User-Agent strings into display names and stable
// fingerprints for soft device binding of vault sessions.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes device fingerprints. When disabled, fingerprints are
// empty and sessions are never bound to a device.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent turns a raw User-Agent header into a human-readable
// "Browser on Platform" display name for session listings and audit logs.
func ParseUserAgent(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.OSInfo().Name
	if platform == "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown Platform"
	}

	return strings.TrimSpace(browser + " on " + platform)
}

// ComputeFingerprint derives a deterministic fingerprint from the stable
// parts of the User-Agent. Minor browser updates must not rotate the
// fingerprint, so only the major version participates.
func (s *Service) ComputeFingerprint(rawUA string) string {
	if s == nil || !s.enabled {
		return ""
	}

	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")

	sum := sha256.Sum256([]byte(browser + "|" + major + "|" + ua.OSInfo().Name + "|" + ua.Platform()))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether a stored and a presented fingerprint
// match, and whether the mismatch counts as drift. Empty fingerprints
// (binding disabled, or legacy sessions) never count as drift.
func (s *Service) CompareFingerprints(stored, presented string) (matched, drift bool) {
	if stored == "" || presented == "" {
		return stored == presented, false
	}
	if stored == presented {
		return true, false
	}
	return false, true
}
