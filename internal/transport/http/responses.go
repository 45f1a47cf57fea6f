package httptransport

import (
	"time"

	"credchain/internal/chain"
	"credchain/internal/vault"
)

// SessionResponse is the HTTP response for POST /v1/session.
type SessionResponse struct {
	SessionID      string    `json:"session_id"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	PublicKey      string    `json:"public_key"`
	Restored       bool      `json:"restored"`
}

// NewSessionResponse builds the response from a started session and
// its freshly minted token.
func NewSessionResponse(sess *vault.Session, publicKey, token string, expiresAt time.Time) SessionResponse {
	return SessionResponse{
		SessionID:      sess.ID().String(),
		Token:          token,
		TokenExpiresAt: expiresAt,
		PublicKey:      publicKey,
		Restored:       sess.Restored(),
	}
}

// BlockResponse is the HTTP response for a single appended or fetched
// block. Block marshals with its payload envelope; Revoked reflects
// whether a later revocation marker targets it.
type BlockResponse struct {
	Block   chain.Block `json:"block"`
	Revoked bool        `json:"revoked"`
}

// ListBlocksResponse is the HTTP response for GET /v1/blocks.
type ListBlocksResponse struct {
	Blocks []chain.Block `json:"blocks"`
	Length int           `json:"length"`
}

// ValidateChainResponse is the HTTP response for GET /v1/chain/validate.
type ValidateChainResponse struct {
	Valid  bool `json:"valid"`
	Length int  `json:"length"`
}

// VerifyAttributeResponse is the HTTP response for POST /v1/verify.
type VerifyAttributeResponse struct {
	Matches    bool   `json:"matches"`
	BlockIndex uint64 `json:"block_index"`
	Attribute  string `json:"attribute"`
}

// VerifyProofResponse is the HTTP response for POST /v1/proofs/verify.
type VerifyProofResponse struct {
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
}
