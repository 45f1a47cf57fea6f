// Package secrets mints and checks the operator admin token. The server
// only ever sees the bcrypt hash; the plaintext token exists at mint time
// and in the caller's hands.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "credchain/pkg/domain-errors"
)

// NewToken mints a 256-bit random token, base64url-encoded without padding.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not mint token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash produces the bcrypt hash the server stores in place of the token.
func Hash(token string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "token is too long")
		}
		return "", fmt.Errorf("could not hash token: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether a presented token matches the stored bcrypt hash.
func Verify(token, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid admin token")
		}
		return fmt.Errorf("could not verify token: %w", err)
	}
	return nil
}
