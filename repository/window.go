package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Time-window queries backing the aggregation service. Windows are keyed by
// ingestion time: run_items.created_at for item-level metrics, runs.started_at
// for run counts. RFC 3339 text compares lexicographically, so plain string
// comparison gives correct time ordering.

// MetricValuesInWindow returns all values of one metric for items created in
// (from, to], sorted ascending as percentile computation expects.
func (s *Store) MetricValuesInWindow(ctx context.Context, name string, from, to time.Time) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.value
		 FROM metrics m
		 JOIN run_items ri ON ri.id = m.run_item_id
		 WHERE m.metric_name = ? AND ri.created_at > ? AND ri.created_at <= ?
		 ORDER BY m.value`,
		name, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// RunCountsSince returns the total and completed run counts for runs started
// after the cutoff.
func (s *Store) RunCountsSince(ctx context.Context, since time.Time) (total, completed int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'completed' THEN 1 END)
		 FROM runs WHERE started_at > ?`,
		formatTime(since)).Scan(&total, &completed)
	return total, completed, err
}

// ItemCountSince returns the number of run items created after the cutoff.
func (s *Store) ItemCountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_items WHERE created_at > ?`,
		formatTime(since)).Scan(&n)
	return n, err
}

// AvgMetricSince returns the mean of one metric over the window, with a
// false flag when no samples exist.
func (s *Store) AvgMetricSince(ctx context.Context, name string, since time.Time) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(m.value)
		 FROM metrics m
		 JOIN run_items ri ON ri.id = m.run_item_id
		 WHERE m.metric_name = ? AND ri.created_at > ?`,
		name, formatTime(since)).Scan(&avg)
	if err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}

// AvgLatencySince averages all latency samples (end-to-end, synthesis and
// transcription) over the window.
func (s *Store) AvgLatencySince(ctx context.Context, since time.Time) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(m.value)
		 FROM metrics m
		 JOIN run_items ri ON ri.id = m.run_item_id
		 WHERE m.metric_name IN ('e2e_latency', 'tts_latency', 'stt_latency')
		   AND ri.created_at > ?`,
		formatTime(since)).Scan(&avg)
	if err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}

// InsightRow is the per-item projection the insights view folds over: the
// vendor label, the sidecar labels and the recorded metric values.
type InsightRow struct {
	ItemID  string
	Vendor  string
	Sidecar map[string]any
	Metrics map[string]float64
}

// InsightRowsSince returns one row per item created after the cutoff, with
// its metrics aggregated into a name→value map.
func (s *Store) InsightRowsSince(ctx context.Context, since time.Time) ([]InsightRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ri.id, ri.vendor, ri.sidecar_json,
		        COALESCE(group_concat(m.metric_name || ':' || m.value, '|'), '')
		 FROM run_items ri
		 LEFT JOIN metrics m ON m.run_item_id = ri.id
		 WHERE ri.created_at > ?
		 GROUP BY ri.id`,
		formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InsightRow
	for rows.Next() {
		var row InsightRow
		var sidecarJSON sql.NullString
		var concat string
		if err := rows.Scan(&row.ItemID, &row.Vendor, &sidecarJSON, &concat); err != nil {
			return nil, err
		}
		if sidecarJSON.Valid && sidecarJSON.String != "" && sidecarJSON.String != "null" {
			// Unparseable sidecars degrade to no labels, not an error
			_ = json.Unmarshal([]byte(sidecarJSON.String), &row.Sidecar)
		}
		row.Metrics = parseMetricConcat(concat)
		result = append(result, row)
	}
	return result, rows.Err()
}

// parseMetricConcat splits "name:value|name:value" into a map, skipping
// malformed entries.
func parseMetricConcat(concat string) map[string]float64 {
	metrics := make(map[string]float64)
	if concat == "" {
		return metrics
	}
	for _, pair := range strings.Split(concat, "|") {
		name, raw, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		metrics[name] = v
	}
	return metrics
}
