package snapshot

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"credchain/pkg/platform/sentinel"
)

// Envelope layout: magic ‖ salt ‖ nonce ‖ ciphertext. The magic pins
// the envelope version; salt feeds the KDF; the nonce belongs to the
// AEAD. Everything before the ciphertext doubles as associated data.
var sealedMagic = []byte("CCS1")

const sealedSaltSize = 32

// Argon2id work factors. Server-grade: 64 MiB, three passes.
const (
	sealedArgonTime    = 3
	sealedArgonMemory  = 64 * 1024
	sealedArgonThreads = 4
)

// SealedStore encrypts snapshots at rest with a key derived from a
// passphrase. It wraps any inner Store: the inner backend only ever
// sees ciphertext.
type SealedStore struct {
	inner      Store
	passphrase []byte
}

func NewSealedStore(inner Store, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealed store: %w", sentinel.ErrSealed)
	}
	return &SealedStore{inner: inner, passphrase: []byte(passphrase)}, nil
}

func (s *SealedStore) Save(ctx context.Context, blob []byte) error {
	salt := make([]byte, sealedSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("draw salt: %w", err)
	}
	key := argon2.IDKey(s.passphrase, salt, sealedArgonTime, sealedArgonMemory, sealedArgonThreads, chacha20poly1305.KeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("draw nonce: %w", err)
	}

	header := make([]byte, 0, len(sealedMagic)+len(salt)+len(nonce))
	header = append(header, sealedMagic...)
	header = append(header, salt...)
	header = append(header, nonce...)

	out := make([]byte, len(header), len(header)+len(blob)+aead.Overhead())
	copy(out, header)
	out = aead.Seal(out, nonce, blob, header)
	return s.inner.Save(ctx, out)
}

func (s *SealedStore) Load(ctx context.Context) ([]byte, error) {
	sealed, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	headerLen := len(sealedMagic) + sealedSaltSize + chacha20poly1305.NonceSizeX
	if len(sealed) < headerLen || !bytes.HasPrefix(sealed, sealedMagic) {
		return nil, fmt.Errorf("snapshot envelope: %w", sentinel.ErrCorrupt)
	}
	salt := sealed[len(sealedMagic) : len(sealedMagic)+sealedSaltSize]
	nonce := sealed[len(sealedMagic)+sealedSaltSize : headerLen]

	key := argon2.IDKey(s.passphrase, salt, sealedArgonTime, sealedArgonMemory, sealedArgonThreads, chacha20poly1305.KeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	blob, err := aead.Open(nil, nonce, sealed[headerLen:], sealed[:headerLen])
	if err != nil {
		// Wrong passphrase and tampered ciphertext are
		// indistinguishable here.
		return nil, fmt.Errorf("open snapshot envelope: %w", sentinel.ErrSealed)
	}
	return blob, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
