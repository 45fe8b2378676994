package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/ds160fill/record"
)

// ClientRecord is a stored applicant record.
type ClientRecord struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Data      record.Record `json:"clientData"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// RecordSummary lists a record without its data.
type RecordSummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Sections  int       `json:"sections"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PutRecord inserts r, or replaces the data and label of an existing record
// with the same ID. An empty ID is assigned.
func (s *Store) PutRecord(ctx context.Context, r *ClientRecord) error {
	if r.Data == nil {
		return fmt.Errorf("store: put record: no data")
	}
	if r.ID == "" {
		r.ID = newID("rec_")
	}
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err = s.exec(ctx, `
		INSERT INTO client_records (id, label, data, created_at, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label, data = excluded.data, updated_at = excluded.updated_at`,
		r.ID, r.Label, string(data), r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put record %s: %w", r.ID, err)
	}
	return nil
}

// GetRecord returns the record with id or ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id string) (*ClientRecord, error) {
	var (
		r                ClientRecord
		data             string
		created, updated int64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, label, data, created_at, updated_at
		FROM client_records WHERE id = ?`, id).Scan(&r.ID, &r.Label, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record %s: %w", id, err)
	}
	if r.Data, err = record.Parse([]byte(data)); err != nil {
		return nil, fmt.Errorf("store: decode record %s: %w", id, err)
	}
	r.CreatedAt = time.UnixMilli(created)
	r.UpdatedAt = time.UnixMilli(updated)
	return &r, nil
}

// ListRecords returns every record, most recently updated first.
func (s *Store) ListRecords(ctx context.Context) ([]RecordSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, label, data, updated_at FROM client_records ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	var out []RecordSummary
	for rows.Next() {
		var (
			sum     RecordSummary
			data    string
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Label, &data, &updated); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		if rec, err := record.Parse([]byte(data)); err == nil {
			sum.Sections = len(rec)
		}
		sum.UpdatedAt = time.UnixMilli(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteRecord removes a record. Its runs are kept with a null record id.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM client_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	return nil
}
