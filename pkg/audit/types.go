// Package audit records security events (logins, failures, logouts)
// to a durable table. Recording is best-effort: a failed write is
// logged and swallowed so it can never block an auth operation.
package audit

import (
	"context"
	"time"
)

// Event types recorded by the auth subsystem
const (
	EventAuthSuccess    = "auth_success"
	EventAuthFailure    = "auth_failure"
	EventUserRegistered = "user_registered"
	EventLogout         = "logout"
)

// Event severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a single security event
type Event struct {
	Type      string                 `json:"event_type"`
	Severity  string                 `json:"severity"`
	UserID    string                 `json:"user_id,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

// Recorder records security events
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// NopRecorder discards all events
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(ctx context.Context, event Event) {}
