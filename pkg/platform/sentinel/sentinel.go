package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or snapshot does not exist in the store
// - ErrSealed: a snapshot blob is sealed and no passphrase was supplied
// - ErrCorrupt: a stored blob failed decoding or authentication
// - ErrClosed: the resource (publisher, watcher) has been shut down
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrSealed      = errors.New("snapshot sealed")
	ErrCorrupt     = errors.New("corrupt blob")
	ErrClosed      = errors.New("closed")
	ErrUnavailable = errors.New("unavailable")
)
