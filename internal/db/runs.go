package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a survey run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// SurveyRun records one contour generation over a set of log files.
type SurveyRun struct {
	RunID          string     `json:"run_id"`
	SourceFiles    []string   `json:"source_files"`
	Strategy       string     `json:"strategy"`
	Fallback       bool       `json:"fallback"`
	PointCount     int        `json:"point_count"`
	PrimaryCount   int        `json:"primary_count"`
	SecondaryCount int        `json:"secondary_count"`
	SpacingDeg     float64    `json:"spacing_deg"`
	Status         RunStatus  `json:"status"`
	Error          string     `json:"error,omitempty"`
	MapPath        string     `json:"map_path,omitempty"`
	GeoJSONPath    string     `json:"geojson_path,omitempty"`
	HistogramPath  string     `json:"histogram_path,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// CreateRun inserts run with status running. RunID and CreatedAt are
// filled in when empty.
func (db *DB) CreateRun(ctx context.Context, run *SurveyRun) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	files, err := json.Marshal(orEmpty(run.SourceFiles))
	if err != nil {
		return fmt.Errorf("encode source files: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO survey_runs (run_id, source_files, status, created_unix)
		VALUES (?, ?, ?, ?)`,
		run.RunID, string(files), string(run.Status), run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the outcome of run and stamps FinishedAt.
func (db *DB) FinishRun(ctx context.Context, run *SurveyRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	res, err := db.ExecContext(ctx, `
		UPDATE survey_runs SET
			strategy = ?, fallback = ?, point_count = ?, primary_count = ?,
			secondary_count = ?, spacing_deg = ?, status = ?, error = ?,
			map_path = ?, geojson_path = ?, histogram_path = ?, finished_unix = ?
		WHERE run_id = ?`,
		run.Strategy, run.Fallback, run.PointCount, run.PrimaryCount,
		run.SecondaryCount, run.SpacingDeg, string(run.Status), run.Error,
		run.MapPath, run.GeoJSONPath, run.HistogramPath, now.Unix(),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", run.RunID, ErrNotFound)
	}
	return nil
}

const runColumns = `run_id, source_files, strategy, fallback, point_count, primary_count,
	secondary_count, spacing_deg, status, error, map_path, geojson_path,
	histogram_path, created_unix, finished_unix`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*SurveyRun, error) {
	var (
		run      SurveyRun
		files    string
		status   string
		created  int64
		finished sql.NullInt64
	)
	if err := s.Scan(&run.RunID, &files, &run.Strategy, &run.Fallback, &run.PointCount,
		&run.PrimaryCount, &run.SecondaryCount, &run.SpacingDeg, &status, &run.Error,
		&run.MapPath, &run.GeoJSONPath, &run.HistogramPath, &created, &finished); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(files), &run.SourceFiles); err != nil {
		return nil, fmt.Errorf("decode source files of %s: %w", run.RunID, err)
	}
	run.Status = RunStatus(status)
	run.CreatedAt = time.Unix(created, 0).UTC()
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun returns the run with the given id or ErrNotFound.
func (db *DB) GetRun(ctx context.Context, runID string) (*SurveyRun, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM survey_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]SurveyRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM survey_runs
		ORDER BY created_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []SurveyRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
