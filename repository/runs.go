package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRun persists a run and its expanded items atomically. The run
// starts pending; item IDs and timestamps are filled in when absent.
func (s *Store) CreateRun(ctx context.Context, run *Run, items []RunItem) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}

	vendorsJSON, err := json.Marshal(run.Vendors)
	if err != nil {
		return fmt.Errorf("marshal vendors: %w", err)
	}
	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, mode, vendor_list_json, config_json, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, run.Mode, string(vendorsJSON), string(configJSON),
			string(run.Status), formatTime(run.CreatedAt),
		)
		if err != nil {
			return wrapWriteError(err)
		}

		for i := range items {
			item := &items[i]
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.RunID = run.ID
			if item.CreatedAt.IsZero() {
				item.CreatedAt = time.Now()
			}
			if item.Status == "" {
				item.Status = StatusPending
			}

			sidecarJSON, err := json.Marshal(item.Sidecar)
			if err != nil {
				return fmt.Errorf("marshal sidecar: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO run_items
				 (id, run_id, script_item_id, vendor, text_input, sidecar_json, status, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, item.RunID, nullable(item.ScriptItemID), item.Vendor,
				item.TextInput, string(sidecarJSON), string(item.Status),
				formatTime(item.CreatedAt),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}
		return nil
	})
}

// StartRun marks a run running and records its start time.
func (s *Store) StartRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
		string(StatusRunning), formatTime(time.Now()), runID,
	)
	if err != nil {
		return wrapWriteError(err)
	}
	return requireAffected(res, runID)
}

// SetItemStatus advances a run item's state without a completion payload,
// used for the pending → running edge.
func (s *Store) SetItemStatus(ctx context.Context, itemID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_items SET status = ? WHERE id = ?`,
		string(status), itemID,
	)
	if err != nil {
		return wrapWriteError(err)
	}
	return requireAffected(res, itemID)
}

// CompleteItem writes a terminal run item state together with its metrics
// and artifact pointers in one transaction. If the item is the run's last
// non-terminal one, the run's aggregate status and finish time commit in
// the same transaction. It returns the run's status after the write and
// whether that status is terminal.
func (s *Store) CompleteItem(ctx context.Context, c ItemCompletion) (Status, bool, error) {
	sidecarJSON, err := json.Marshal(c.Sidecar)
	if err != nil {
		return "", false, fmt.Errorf("marshal sidecar: %w", err)
	}

	var runStatus Status
	var finalized bool

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var runID string
		if err := tx.QueryRowContext(ctx,
			`SELECT run_id FROM run_items WHERE id = ?`, c.ItemID,
		).Scan(&runID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("run item %s: %w", c.ItemID, ErrNotFound)
			}
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE run_items
			 SET status = ?, audio_path = ?, transcript = ?, metrics_summary = ?,
			     sidecar_json = ?, failure_reason = ?
			 WHERE id = ?`,
			string(c.Status), nullable(c.AudioPath), nullable(c.Transcript),
			nullable(c.MetricsSummary), string(sidecarJSON),
			nullable(c.FailureReason), c.ItemID,
		)
		if err != nil {
			return wrapWriteError(err)
		}

		for _, m := range c.Metrics {
			id := m.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO metrics (id, run_item_id, metric_name, value, unit, threshold, pass_fail)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, c.ItemID, m.Name, m.Value, nullable(m.Unit),
				m.Threshold, nullable(m.PassFail),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}

		for _, a := range c.Artifacts {
			id := a.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (id, run_item_id, type, file_path, content_type, byte_length, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, c.ItemID, a.Kind, a.FilePath, nullable(a.ContentType),
				a.ByteLength, formatTime(time.Now()),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}

		// Finalize the run in the same transaction when this was the last
		// open item.
		var open, completed, failed int
		err = tx.QueryRowContext(ctx,
			`SELECT
			   COUNT(CASE WHEN status IN ('pending', 'running') THEN 1 END),
			   COUNT(CASE WHEN status = 'completed' THEN 1 END),
			   COUNT(CASE WHEN status = 'failed' THEN 1 END)
			 FROM run_items WHERE run_id = ?`, runID,
		).Scan(&open, &completed, &failed)
		if err != nil {
			return err
		}

		if open > 0 {
			runStatus = StatusRunning
			return nil
		}

		switch {
		case failed == 0:
			runStatus = StatusCompleted
		case completed == 0:
			runStatus = StatusFailed
		default:
			runStatus = StatusPartial
		}
		finalized = true

		_, err = tx.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
			string(runStatus), formatTime(time.Now()), runID,
		)
		return wrapWriteError(err)
	})
	if err != nil {
		return "", false, err
	}
	return runStatus, finalized, nil
}

// GetRun returns a run by ID without its items.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, vendor_list_json, config_json, status, created_at, started_at, finished_at
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

// ListRuns returns runs ordered newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, vendor_list_json, config_json, status, created_at, started_at, finished_at
		 FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetItem returns a run item by ID.
func (s *Store) GetItem(ctx context.Context, itemID string) (*RunItem, error) {
	row := s.db.QueryRowContext(ctx, itemSelect+` WHERE id = ?`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run item %s: %w", itemID, ErrNotFound)
	}
	return item, err
}

// ListItemsByRun returns a run's items in creation order.
func (s *Store) ListItemsByRun(ctx context.Context, runID string) ([]RunItem, error) {
	rows, err := s.db.QueryContext(ctx,
		itemSelect+` WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// MetricsForItem returns an item's metric rows.
func (s *Store) MetricsForItem(ctx context.Context, itemID string) ([]Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_item_id, metric_name, value, unit, threshold, pass_fail
		 FROM metrics WHERE run_item_id = ? ORDER BY metric_name`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		var unit, passFail sql.NullString
		var threshold sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.RunItemID, &m.Name, &m.Value, &unit, &threshold, &passFail); err != nil {
			return nil, err
		}
		m.Unit = unit.String
		m.PassFail = passFail.String
		if threshold.Valid {
			v := threshold.Float64
			m.Threshold = &v
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ArtifactsForItem returns an item's artifact pointers.
func (s *Store) ArtifactsForItem(ctx context.Context, itemID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_item_id, type, file_path, content_type, byte_length, created_at
		 FROM artifacts WHERE run_item_id = ? ORDER BY type`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArtifactRecord
	for rows.Next() {
		var a ArtifactRecord
		var contentType sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.RunItemID, &a.Kind, &a.FilePath, &contentType, &a.ByteLength, &createdAt); err != nil {
			return nil, err
		}
		a.ContentType = contentType.String
		a.CreatedAt = parseTime(createdAt)
		records = append(records, a)
	}
	return records, rows.Err()
}

// PurgeRun deletes a run and everything it owns. Artifact files on disk are
// the caller's responsibility; this removes only the rows.
func (s *Store) PurgeRun(ctx context.Context, runID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM metrics WHERE run_item_id IN (SELECT id FROM run_items WHERE run_id = ?)`,
			`DELETE FROM artifacts WHERE run_item_id IN (SELECT id FROM run_items WHERE run_id = ?)`,
			`DELETE FROM user_ratings WHERE run_item_id IN (SELECT id FROM run_items WHERE run_id = ?)`,
			`DELETE FROM run_items WHERE run_id = ?`,
			`DELETE FROM runs WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, runID); err != nil {
				return wrapWriteError(err)
			}
		}
		return nil
	})
}

const itemSelect = `SELECT id, run_id, script_item_id, vendor, text_input, audio_path,
	transcript, metrics_summary, sidecar_json, status, failure_reason, created_at
	FROM run_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var vendorsJSON string
	var configJSON, startedAt, finishedAt sql.NullString
	var status, createdAt string

	err := row.Scan(&run.ID, &run.Mode, &vendorsJSON, &configJSON, &status,
		&createdAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.CreatedAt = parseTime(createdAt)
	run.StartedAt = parseTimePtr(startedAt)
	run.FinishedAt = parseTimePtr(finishedAt)

	if err := json.Unmarshal([]byte(vendorsJSON), &run.Vendors); err != nil {
		return nil, fmt.Errorf("unmarshal vendors: %w", err)
	}
	if configJSON.Valid && configJSON.String != "" && configJSON.String != "null" {
		if err := json.Unmarshal([]byte(configJSON.String), &run.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	return &run, nil
}

func scanItem(row rowScanner) (*RunItem, error) {
	var item RunItem
	var scriptItemID, audioPath, transcript, summary, sidecarJSON, reason sql.NullString
	var status, createdAt string

	err := row.Scan(&item.ID, &item.RunID, &scriptItemID, &item.Vendor,
		&item.TextInput, &audioPath, &transcript, &summary, &sidecarJSON,
		&status, &reason, &createdAt)
	if err != nil {
		return nil, err
	}

	item.ScriptItemID = scriptItemID.String
	item.AudioPath = audioPath.String
	item.Transcript = transcript.String
	item.MetricsSummary = summary.String
	item.Status = Status(status)
	item.FailureReason = reason.String
	item.CreatedAt = parseTime(createdAt)

	if sidecarJSON.Valid && sidecarJSON.String != "" && sidecarJSON.String != "null" {
		if err := json.Unmarshal([]byte(sidecarJSON.String), &item.Sidecar); err != nil {
			return nil, fmt.Errorf("unmarshal sidecar: %w", err)
		}
	}
	return &item, nil
}

// nullable maps empty strings to NULL so the schema's optional columns
// stay NULL instead of holding empty text.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
