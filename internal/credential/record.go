// Package credential builds signed, hashed attribute records ready for
// inclusion in a block payload. A record never stores sensitive
// plaintext: the value is folded into a digest (double digest for
// sensitive attributes) and an ECDSA signature over the original
// attribute‖value message, so a holder can later prove the value
// without the ledger ever having seen it in the clear.
package credential

import (
	"encoding/base64"
	"time"

	"credchain/internal/crypto"
	dErrors "credchain/pkg/domain-errors"
)

// Record is a single issued attribute as it appears inside a block
// payload. HashedValue commits to the value, Signature binds
// attribute and value to the issuer key, PublicKey lets any reader
// re-run the check without extra lookups.
type Record struct {
	Attribute   string    `json:"attribute"`
	HashedValue string    `json:"hashed_value"`
	Signature   string    `json:"signature"`
	PublicKey   string    `json:"public_key"`
	Sensitive   bool      `json:"sensitive"`
	IssuedAt    time.Time `json:"issued_at"`

	// DisplayValue carries the plaintext only for attributes the
	// holder agreed to disclose. Sensitive records leave it empty.
	DisplayValue string `json:"display_value,omitempty"`
}

// BuildRecord hashes and signs one attribute/value pair.
//
// The signature is always computed over the plaintext attribute‖value
// concatenation, regardless of sensitivity: sensitivity changes how
// the value is committed (single vs double digest), never what was
// signed. That keeps VerifyAttributeValue a single code path.
func BuildRecord(attribute, value string, kp crypto.KeyPair, sensitive bool) (Record, error) {
	if attribute == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "attribute name must not be empty")
	}
	if kp.Private == nil || kp.Public == nil {
		return Record{}, dErrors.New(dErrors.CodeCryptoFailure, "key pair is not initialised")
	}

	hashed := crypto.DigestHex([]byte(value))
	if sensitive {
		hashed = crypto.DigestHex([]byte(hashed))
	}

	sig, err := crypto.Sign(kp.Private, []byte(attribute+value))
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "sign attribute record")
	}

	pub, err := crypto.MarshalPublicKey(kp.Public)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "encode public key")
	}

	rec := Record{
		Attribute:   attribute,
		HashedValue: hashed,
		Signature:   base64.StdEncoding.EncodeToString(sig),
		PublicKey:   pub,
		Sensitive:   sensitive,
		IssuedAt:    time.Now().UTC(),
	}
	if !sensitive {
		rec.DisplayValue = value
	}
	return rec, nil
}

// VerifyValue checks a candidate plaintext against the record: the
// digest commitment must match (re-applying the double digest for
// sensitive records) and the embedded signature must verify over
// attribute‖candidate. A mismatch returns false with no error; an
// error means the record's key material is unusable.
func (r Record) VerifyValue(candidate string) (bool, error) {
	hashed := crypto.DigestHex([]byte(candidate))
	if r.Sensitive {
		hashed = crypto.DigestHex([]byte(hashed))
	}
	if hashed != r.HashedValue {
		return false, nil
	}

	pub, err := crypto.ParsePublicKey(r.PublicKey)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode record public key")
	}
	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode record signature")
	}
	return crypto.Verify(pub, []byte(r.Attribute+candidate), sig)
}
