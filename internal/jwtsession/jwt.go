// Package jwtsession issues and validates the bearer tokens that bind API
// calls to a holder's vault session.
package jwtsession

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "credchain/pkg/domain"
	dErrors "credchain/pkg/domain-errors"
)

// Claims represents the JWT claims for vault session tokens.
type Claims struct {
	SessionID         string `json:"session_id"`
	DeviceFingerprint string `json:"dfp,omitempty"`
	jwt.RegisteredClaims
}

// Service handles session token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     "credchain",
		audience:   "credchain-vault",
		ttl:        ttl,
	}
}

// Issue signs a token for the given session. The device fingerprint, when
// present, is carried in the token so later requests can detect drift.
func (s *Service) Issue(sessionID id.SessionID, deviceFingerprint string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID:         sessionID.String(),
		DeviceFingerprint: deviceFingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signedToken, expiresAt, nil
}

// ValidateToken checks the signature, expiry, issuer and audience, and
// returns the embedded claims. Tokens minted for any other audience fail
// even under the right key.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return s.signingKey, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}
