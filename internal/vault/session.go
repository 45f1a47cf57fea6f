package vault

import (
	"time"

	"credchain/internal/chain"
	"credchain/internal/crypto"
	id "credchain/pkg/domain"
)

// Session binds a fresh key pair to a chain for the lifetime of one
// process session. The private key exists only here; the chain may
// well be older than the session, restored from a snapshot mined under
// previous keys.
type Session struct {
	id        id.SessionID
	keys      *crypto.KeyPair
	ledger    *chain.Ledger
	createdAt time.Time
	restored  bool
}

func (s *Session) ID() id.SessionID {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Restored reports whether the session's chain was loaded from a
// snapshot rather than freshly mined.
func (s *Session) Restored() bool {
	return s.restored
}

// PublicKey returns the session's verification key, base64-encoded.
func (s *Session) PublicKey() (string, error) {
	return crypto.MarshalPublicKey(s.keys.Public)
}
