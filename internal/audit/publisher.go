package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"credchain/internal/platform/metrics"
)

// Sink receives a copy of every stored event, best effort. Sinks feed
// external pipelines (Kafka, AMQP); the Store remains the system of record.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. With an
// async buffer, Emit never blocks the request path; full buffers drop.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger
	m      *metrics.Metrics

	inbox     chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking through a buffered channel of the
// given size, drained by a background goroutine.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithSink adds a best-effort external sink.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

// WithLogger sets the logger for drop and sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics records stored/dropped/failed outcomes per category.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.m = m
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}

	return p
}

// Emit records one event. The category is derived from the action when not
// set explicitly, and a zero timestamp is filled in.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = ChainEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"category", string(event.Category),
		)
		p.m.IncrementAuditEvent(string(event.Category), "dropped")
		return nil
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		p.m.IncrementAuditEvent(string(event.Category), "store_error")
		return err
	}
	p.m.IncrementAuditEvent(string(event.Category), "stored")

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.Warn("audit sink publish failed",
				"action", event.Action,
				"error", err,
			)
			p.m.IncrementAuditEvent(string(event.Category), "sink_error")
		}
	}
	return nil
}

// drain consumes the inbox until Close. Events already accepted are
// persisted with a background context so request cancellation cannot lose
// them.
func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("audit event persistence failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// Close drains the async buffer and closes all sinks.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
		for _, sink := range p.sinks {
			if err := sink.Close(); err != nil {
				p.logger.Warn("audit sink close failed", "error", err)
			}
		}
	})
}

// List returns events recorded for one vault session.
func (p *Publisher) List(ctx context.Context, sessionID string) ([]Event, error) {
	return p.store.ListBySession(ctx, sessionID)
}

// ListRecent returns the most recent events across all sessions.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
