package audit

import "context"

// Store persists audit events. Implementations must be safe for concurrent
// use; Append is called from the publisher's drain goroutine.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySession(ctx context.Context, sessionID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
