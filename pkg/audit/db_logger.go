package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gathering/gatekeeper/pkg/observability"
)

// DBLogger records security events to PostgreSQL
type DBLogger struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewDBLogger creates a database-backed event recorder and ensures the
// security_events table exists
func NewDBLogger(db *sql.DB, logger *observability.Logger) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	l := &DBLogger{
		db:     db,
		logger: logger,
	}

	if err := l.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}

	return l, nil
}

// ensureTable creates the security_events table if it doesn't exist
func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id BIGSERIAL PRIMARY KEY,
		event_type VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL DEFAULT 'info',
		user_id VARCHAR(255),
		ip_address VARCHAR(45),
		message TEXT,
		details JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_security_events_event_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_user_id ON security_events(user_id);
	`

	_, err := l.db.Exec(query)
	return err
}

// Record inserts a security event. Failures are logged and swallowed so
// auth operations are never blocked by the audit trail.
func (l *DBLogger) Record(ctx context.Context, event Event) {
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		l.logger.WithError(err).Warn("failed to marshal security event details")
		detailsJSON = []byte("{}")
	}

	var userID sql.NullString
	if event.UserID != "" {
		userID = sql.NullString{String: event.UserID, Valid: true}
	}
	var ipAddress sql.NullString
	if event.IPAddress != "" {
		ipAddress = sql.NullString{String: event.IPAddress, Valid: true}
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO security_events (event_type, severity, user_id, ip_address, message, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.Type, event.Severity, userID, ipAddress, event.Message, detailsJSON)
	if err != nil {
		l.logger.WithError(err).WithField("event_type", event.Type).
			Warn("failed to record security event")
	}
}
