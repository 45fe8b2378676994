package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/ds160fill/fill"
)

// Run is one fill request against one page.
type Run struct {
	ID          string            `json:"id"`
	RecordID    string            `json:"recordId,omitempty"`
	Section     string            `json:"section,omitempty"`
	PageURL     string            `json:"pageUrl,omitempty"`
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	FilledCount int               `json:"filledCount"`
	Skipped     int               `json:"skipped"`
	Errors      []fill.FieldError `json:"errors,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
}

// InsertRun records a run. An empty ID is assigned.
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = newID("run_")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	errs := r.Errors
	if errs == nil {
		errs = []fill.FieldError{}
	}
	enc, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("store: encode run errors: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO fill_runs
			(id, record_id, section, page_url, success, message, filled_count, skipped, errors, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, nullStr(r.RecordID), r.Section, r.PageURL, boolInt(r.Success), r.Message,
		r.FilledCount, r.Skipped, string(enc), r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}
	return nil
}

// ListRuns returns the latest runs, newest first. limit <= 0 means 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM fill_runs
		ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
}

// RunsForRecord returns the runs of one record, newest first.
func (s *Store) RunsForRecord(ctx context.Context, recordID string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM fill_runs
		WHERE record_id = ? ORDER BY started_at DESC, id DESC`, recordID)
}

const runColumns = `id, record_id, section, page_url, success, message, filled_count, skipped, errors, started_at, finished_at`

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			recordID          sql.NullString
			success           int
			errs              string
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &recordID, &r.Section, &r.PageURL, &success, &r.Message,
			&r.FilledCount, &r.Skipped, &errs, &started, &finished); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.RecordID = recordID.String
		r.Success = success != 0
		json.Unmarshal([]byte(errs), &r.Errors)
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
