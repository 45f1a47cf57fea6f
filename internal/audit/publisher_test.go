package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.NewString()
	event := Event{
		SessionID: sessionID,
		Action:    string(EventSessionStarted),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventSessionStarted), events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	sessionID := uuid.NewString()
	event := Event{
		SessionID: sessionID,
		Action:    string(EventCredentialIssued),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventCredentialIssued), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	sessionID := uuid.NewString()

	// Emit multiple events
	for range 10 {
		event := Event{
			SessionID: sessionID,
			Action:    string(EventCredentialIssued),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	sessionID := uuid.NewString()

	// Fill the buffer with concurrent writes
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := Event{
				SessionID: sessionID,
				Action:    string(EventProofGenerated),
			}
			err := pub.Emit(context.Background(), event)
			assert.NoError(t, err, "a dropped event is not an emit failure")
		}()
	}
	wg.Wait()

	// Some events may have been dropped (buffer size 1). Just verify no
	// panic and the publisher still accepts new events.
	err := pub.Emit(context.Background(), Event{
		SessionID: sessionID,
		Action:    string(EventProofVerified),
	})
	require.NoError(t, err)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.NewString()
	event := Event{
		SessionID: sessionID,
		Action:    string(EventSessionStarted),
		// Timestamp not set
	}

	before := time.Now()
	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.NewString()
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := Event{
		SessionID: sessionID,
		Action:    string(EventSessionStarted),
		Timestamp: customTime,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_DerivesCategory(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.NewString()

	cases := []struct {
		action string
		want   EventCategory
	}{
		{string(EventCredentialIssued), CategoryCompliance},
		{string(EventTamperDetected), CategorySecurity},
		{string(EventChainValidated), CategoryOperations},
	}
	for _, tc := range cases {
		err := pub.Emit(context.Background(), Event{
			SessionID: sessionID,
			Action:    tc.action,
		})
		require.NoError(t, err)
	}

	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, len(cases))
	for i, tc := range cases {
		assert.Equal(t, tc.want, events[i].Category, "category for %s", tc.action)
	}
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.NewString()

	events := []Event{
		{SessionID: sessionID, Action: string(EventSessionStarted)},
		{SessionID: sessionID, Action: string(EventCredentialIssued)},
		{SessionID: sessionID, Action: string(EventProofGenerated)},
	}

	for _, event := range events {
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	result, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, string(EventSessionStarted), result[0].Action)
	assert.Equal(t, string(EventCredentialIssued), result[1].Action)
	assert.Equal(t, string(EventProofGenerated), result[2].Action)
}

func TestPublisher_DifferentSessions(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID1 := uuid.NewString()
	sessionID2 := uuid.NewString()

	err := pub.Emit(context.Background(), Event{
		SessionID: sessionID1,
		Action:    string(EventSessionStarted),
	})
	require.NoError(t, err)

	err = pub.Emit(context.Background(), Event{
		SessionID: sessionID2,
		Action:    string(EventProofVerified),
	})
	require.NoError(t, err)

	events1, err := pub.List(context.Background(), sessionID1)
	require.NoError(t, err)
	require.Len(t, events1, 1)
	assert.Equal(t, string(EventSessionStarted), events1[0].Action)

	events2, err := pub.List(context.Background(), sessionID2)
	require.NoError(t, err)
	require.Len(t, events2, 1)
	assert.Equal(t, string(EventProofVerified), events2[0].Action)
}

// recordingSink captures published events and can be told to fail.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (s *recordingSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestPublisher_SinkReceivesEvents(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{}
	pub := NewPublisher(store, WithSink(sink))

	sessionID := uuid.NewString()
	err := pub.Emit(context.Background(), Event{
		SessionID: sessionID,
		Action:    string(EventBlockRevoked),
	})
	require.NoError(t, err)

	sink.mu.Lock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, string(EventBlockRevoked), sink.events[0].Action)
	assert.Equal(t, CategoryCompliance, sink.events[0].Category)
	sink.mu.Unlock()

	pub.Close()
	sink.mu.Lock()
	assert.True(t, sink.closed, "Close should close sinks")
	sink.mu.Unlock()
}

func TestPublisher_SinkFailureDoesNotFailEmit(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{err: errors.New("broker down")}
	pub := NewPublisher(store, WithSink(sink))
	defer pub.Close()

	sessionID := uuid.NewString()
	err := pub.Emit(context.Background(), Event{
		SessionID: sessionID,
		Action:    string(EventAttributeVerified),
	})
	require.NoError(t, err, "sink failures are best-effort")

	// The store remains the system of record.
	events, err := pub.List(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
