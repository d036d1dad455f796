package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gathering/gatekeeper/pkg/observability"
)

func setupDBLogger(t *testing.T) (*DBLogger, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS security_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db, observability.NewLogger(observability.ErrorLevel, nil))
	require.NoError(t, err)

	return logger, mock, func() { db.Close() }
}

func TestNewDBLogger_RequiresDB(t *testing.T) {
	_, err := NewDBLogger(nil, nil)
	assert.Error(t, err)
}

func TestNewDBLogger_TableCreationFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS security_events").
		WillReturnError(errors.New("permission denied"))

	_, err = NewDBLogger(db, nil)
	assert.Error(t, err)
}

func TestDBLogger_Record(t *testing.T) {
	logger, mock, cleanup := setupDBLogger(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO security_events").
		WithArgs(EventAuthSuccess, SeverityInfo,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "user login: alice@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	logger.Record(context.Background(), Event{
		Type:    EventAuthSuccess,
		UserID:  "user-1",
		Message: "user login: alice@example.com",
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Record_DefaultSeverity(t *testing.T) {
	logger, mock, cleanup := setupDBLogger(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO security_events").
		WithArgs(EventLogout, SeverityInfo,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	logger.Record(context.Background(), Event{Type: EventLogout})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_Record_SwallowsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS security_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	var buf bytes.Buffer
	logger, err := NewDBLogger(db, observability.NewLogger(observability.WarnLevel, &buf))
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO security_events").
		WillReturnError(errors.New("connection refused"))

	// Must not panic or propagate
	logger.Record(context.Background(), Event{
		Type:     EventAuthFailure,
		Severity: SeverityWarning,
		Message:  "failed login attempt",
	})

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.String(), "failed to record security event")
}

func TestNopRecorder(t *testing.T) {
	// Compile-time interface check plus a call that must do nothing
	var r Recorder = NopRecorder{}
	r.Record(context.Background(), Event{Type: EventAuthSuccess})
}
