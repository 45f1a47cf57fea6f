package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"

	dErrors "credchain/pkg/domain-errors"
)

// KeyPair is the session signing key pair. The private half exists only in
// memory for the lifetime of the vault session and is passed explicitly into
// every signing call; nothing in this codebase persists it.
type KeyPair struct {
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
}

// GenerateKeyPair creates a fresh P-256 key pair from the system's
// cryptographically secure random source.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "generate key pair")
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// Sign produces an ASN.1 ECDSA signature over the SHA-256 digest of message.
// Absent key material fails with a crypto error; it never silently signs with
// a zero key.
func Sign(priv *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	if priv == nil {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "private key is nil")
	}
	digest := Digest(message)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "sign message")
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over message by the holder
// of pub. It is a pure predicate: any modified message or signature yields
// false. Only absent key material is an error, so callers can distinguish
// "signature does not match" from "nothing to verify with".
func Verify(pub *ecdsa.PublicKey, message, sig []byte) (bool, error) {
	if pub == nil {
		return false, dErrors.New(dErrors.CodeCryptoFailure, "public key is nil")
	}
	if len(sig) == 0 {
		return false, nil
	}
	digest := Digest(message)
	return ecdsa.VerifyASN1(pub, digest[:], sig), nil
}

// MarshalPublicKey encodes pub as base64 PKIX DER so collaborators outside
// the process can verify records against the session key.
func MarshalPublicKey(pub *ecdsa.PublicKey) (string, error) {
	if pub == nil {
		return "", dErrors.New(dErrors.CodeCryptoFailure, "public key is nil")
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptoFailure, "marshal public key")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ParsePublicKey decodes a key produced by MarshalPublicKey.
func ParsePublicKey(encoded string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "parse public key")
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "public key is not ECDSA")
	}
	return pub, nil
}
