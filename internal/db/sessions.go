package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/depth.survey/internal/telemetry"
)

// SessionStarted inserts a log session row. It implements
// telemetry.SessionRecorder.
func (db *DB) SessionStarted(ctx context.Context, s telemetry.Session) error {
	files, err := json.Marshal(orEmpty(s.Files))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO log_sessions (session_id, mode, files, started_unix)
		VALUES (?, ?, ?, ?)`,
		s.ID, string(s.Mode), string(files), s.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

// SessionStopped records the final counters of a session.
func (db *DB) SessionStopped(ctx context.Context, s telemetry.Session) error {
	files, err := json.Marshal(orEmpty(s.Files))
	if err != nil {
		return err
	}
	stopped := time.Now().UTC()
	if s.StoppedAt != nil {
		stopped = *s.StoppedAt
	}
	res, err := db.ExecContext(ctx, `
		UPDATE log_sessions SET files = ?, row_count = ?, error_count = ?,
			last_error = ?, stopped_unix = ?
		WHERE session_id = ?`,
		string(files), s.Rows, s.Errors, s.LastError, stopped.Unix(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]telemetry.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, mode, files, row_count, error_count, last_error, started_unix, stopped_unix
		FROM log_sessions ORDER BY started_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []telemetry.Session{}
	for rows.Next() {
		var (
			s       telemetry.Session
			mode    string
			files   string
			started int64
			stopped sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &mode, &files, &s.Rows, &s.Errors, &s.LastError, &started, &stopped); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &s.Files); err != nil {
			return nil, fmt.Errorf("decode files of session %s: %w", s.ID, err)
		}
		s.Mode = telemetry.State(mode)
		s.StartedAt = time.Unix(started, 0).UTC()
		if stopped.Valid {
			t := time.Unix(stopped.Int64, 0).UTC()
			s.StoppedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ telemetry.SessionRecorder = (*DB)(nil)
