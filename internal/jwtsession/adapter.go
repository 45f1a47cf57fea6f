package jwtsession

import (
	"credchain/internal/platform/middleware"
)

// ToMiddlewareClaims converts token claims into the shape the auth
// middleware consumes.
func ToMiddlewareClaims(claims *Claims) *middleware.SessionClaims {
	return &middleware.SessionClaims{
		SessionID:         claims.SessionID,
		JTI:               claims.ID,
		DeviceFingerprint: claims.DeviceFingerprint,
	}
}

// ValidatorAdapter lets the middleware validate tokens without importing
// this package's claim type.
type ValidatorAdapter struct {
	service *Service
}

func NewValidatorAdapter(service *Service) *ValidatorAdapter {
	return &ValidatorAdapter{service: service}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
