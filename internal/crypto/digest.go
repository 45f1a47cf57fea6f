// Package crypto holds the primitive layer: content digests, hash chains, and
// the session signing key pair. Everything above it (credential records, the
// chain, the proof engine) builds on these and nothing here reaches back up.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	dErrors "credchain/pkg/domain-errors"
)

// DigestSize is the byte length of every digest produced by this package.
const DigestSize = sha256.Size

// Digest returns the SHA-256 digest of data. Deterministic and stable across
// platforms; used for content addressing, credential hashing, and proof
// chains.
func Digest(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// DigestHex returns the lowercase hex encoding of Digest(data). Block hashes,
// hash-chain links, and commitments all live in this hex-string space so that
// the genesis sentinel ("0") and difficulty prefixes compare directly.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashChain applies DigestHex to seed n times. n == 0 returns the seed
// unchanged. Pure function of (seed, n): the whole threshold proof scheme
// depends on chain(chain(s, a), b) == chain(s, a+b).
func HashChain(seed string, n int) string {
	out := seed
	for i := 0; i < n; i++ {
		out = DigestHex([]byte(out))
	}
	return out
}

// NewSeed returns a fresh 256-bit random value, hex encoded, suitable as a
// hash-chain seed.
func NewSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptoFailure, "read random seed")
	}
	return hex.EncodeToString(buf), nil
}
