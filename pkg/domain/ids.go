// Package domain defines typed identifiers shared across services.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing one
// kind of identifier where another is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "credchain/pkg/domain-errors"
)

// SessionID identifies one holder vault session.
type SessionID uuid.UUID

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID validates and returns a SessionID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseSessionID(s string) (SessionID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid session id")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id must not be the nil UUID")
	}
	return SessionID(parsed), nil
}

// String returns the canonical UUID string form.
func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
