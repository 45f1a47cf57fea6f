// Package snapshot persists the serialized chain. The contract is
// deliberately blunt: one opaque blob, overwritten wholesale after
// every mutation, read back verbatim at session start. No backend
// interprets the bytes; versioning an incompatible blob is the
// caller's problem, not the store's.
package snapshot

import "context"

// Store is implemented per backend. Load returns
// sentinel.ErrNotFound when no snapshot has ever been saved, which a
// fresh session treats as "start a new chain".
type Store interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
}
