package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres via the database/sql pq driver and
// verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit_events table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         UUID PRIMARY KEY,
			category   TEXT NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			subject    TEXT NOT NULL DEFAULT '',
			action     TEXT NOT NULL,
			decision   TEXT NOT NULL DEFAULT '',
			reason     TEXT NOT NULL DEFAULT '',
			ip         TEXT NOT NULL DEFAULT '',
			device     TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create audit_events table: %w", err)
	}
	return nil
}

// Append inserts one audit event. Events carry a fresh UUID so replays from
// an async drain never collide.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (
			id, category, timestamp, session_id, subject, action,
			decision, reason, ip, device, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		timestamp,
		event.SessionID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.IP,
		event.Device,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySession returns events for a specific vault session.
func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Event, error) {
	const query = `
		SELECT category, timestamp, session_id, subject, action,
		       decision, reason, ip, device, request_id
		FROM audit_events
		WHERE session_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	const query = `
		SELECT category, timestamp, session_id, subject, action,
		       decision, reason, ip, device, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event

	for rows.Next() {
		var (
			category string
			event    Event
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.SessionID,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.IP,
			&event.Device,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = EventCategory(category)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
