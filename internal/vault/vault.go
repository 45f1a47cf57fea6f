// Package vault owns the per-process credential session: one signing
// key pair, one proof-of-work ledger, one snapshot store. Every
// boundary operation of the service goes through the Manager, which
// keeps the invariants in one place: mutations are serialized by the
// ledger lock, the snapshot is overwritten wholesale strictly after
// each successful mutation, and the private key never leaves memory.
package vault

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credchain/internal/audit"
	"credchain/internal/chain"
	"credchain/internal/platform/metrics"
	dErrors "credchain/pkg/domain-errors"
	"credchain/pkg/requestcontext"
)

type SnapshotStore interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager holds the single active session and the process-wide
// collaborators its operations need.
type Manager struct {
	snapshots      SnapshotStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	difficulty     int

	mu     sync.RWMutex
	active *Session

	watchMu   sync.Mutex
	watchers  map[uint64]chan chain.Block
	nextWatch uint64
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Manager) {
		m.auditPublisher = publisher
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithDifficulty sets the proof-of-work difficulty for chains this
// manager creates or restores.
func WithDifficulty(d int) Option {
	return func(m *Manager) {
		m.difficulty = d
	}
}

// New constructs a Manager.
func New(snapshots SnapshotStore, opts ...Option) (*Manager, error) {
	if snapshots == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "snapshot store is required")
	}
	m := &Manager{
		snapshots:  snapshots,
		logger:     slog.Default(),
		tracer:     otel.Tracer("credchain/vault"),
		difficulty: chain.DefaultDifficulty,
		watchers:   make(map[uint64]chan chain.Block),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Current returns the active session. Callers holding a still-valid
// token after a process restart land here: the chain may be restorable
// from its snapshot, but the key pair is gone with the old process, so
// they must start a new session.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}
	return m.active, nil
}

func (m *Manager) activeSession() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// emitAudit logs the action and hands it to the audit pipeline with
// the caller metadata the middleware stashed in ctx. During session
// start, before any token exists, the freshly activated session
// supplies the id.
func (m *Manager) emitAudit(ctx context.Context, action audit.ChainEvent, decision, reason, subject string) {
	sessionID := ""
	if sid := requestcontext.SessionID(ctx); !sid.IsNil() {
		sessionID = sid.String()
	}
	if sessionID == "" {
		if sess := m.activeSession(); sess != nil {
			sessionID = sess.id.String()
		}
	}

	attrs := []any{"log_type", "audit", "session_id", sessionID}
	if subject != "" {
		attrs = append(attrs, "subject", subject)
	}
	if decision != "" {
		attrs = append(attrs, "decision", decision)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	m.logger.InfoContext(ctx, string(action), attrs...)

	if m.auditPublisher == nil {
		return
	}
	_ = m.auditPublisher.Emit(ctx, audit.Event{
		SessionID: sessionID,
		Subject:   subject,
		Action:    string(action),
		Decision:  decision,
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
}

// persistSnapshot overwrites the stored chain with the session's
// current blocks. Called strictly after a successful mutation; a
// failure here is logged and counted but never unwinds the in-memory
// chain, so memory runs ahead of storage until the next save lands.
func (m *Manager) persistSnapshot(ctx context.Context, sess *Session) {
	started := time.Now()
	blob, err := chain.EncodeBlocks(sess.ledger.Blocks())
	if err == nil {
		err = m.snapshots.Save(ctx, blob)
	}
	m.metrics.ObserveSnapshotSave(err, time.Since(started))
	if err != nil {
		m.logger.ErrorContext(ctx, "snapshot save failed",
			"error", err,
			"chain_length", sess.ledger.Length(),
		)
		m.emitAudit(ctx, audit.EventSnapshotFailed, "", err.Error(), "")
		return
	}
	m.emitAudit(ctx, audit.EventSnapshotSaved, "", "", "")
}
