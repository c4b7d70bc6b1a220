package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubjectiveMetric is a catalog entry for human evaluation: a named quality
// axis with its rating scale, scoped to one service type.
type SubjectiveMetric struct {
	ID          string
	Name        string
	Description string
	ServiceType string
	ScaleMin    int
	ScaleMax    int
}

// UserRating is one submitted score against a subjective metric.
type UserRating struct {
	ID         string
	RunItemID  string
	UserName   string
	MetricID   string
	MetricName string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

// RatingAverage aggregates all users' scores for one metric on one item.
type RatingAverage struct {
	MetricID    string
	Name        string
	Description string
	ServiceType string
	ScaleMin    int
	ScaleMax    int
	AvgRating   float64
	RatingCount int
}

// ItemRatings is the full rating view of a run item.
type ItemRatings struct {
	RunItemID   string
	Averages    []RatingAverage
	Ratings     []UserRating
	UniqueUsers int
}

// RatingSubmission is one user's batch of scores for a run item, keyed by
// subjective metric id. Comments are optional per metric.
type RatingSubmission struct {
	RunItemID string
	UserName  string
	Ratings   map[string]int
	Comments  map[string]string
}

// RatingError rejects a submission that references an unknown metric or a
// score outside the metric's scale.
type RatingError struct {
	Metric  string
	Message string
}

func (e *RatingError) Error() string {
	return fmt.Sprintf("rating %s: %s", e.Metric, e.Message)
}

// defaultSubjectiveMetrics ships the evaluation catalog: four synthesis
// quality axes and two recognition ones, all on a 1-5 scale.
var defaultSubjectiveMetrics = []SubjectiveMetric{
	{ID: "tts_naturalness", Name: "Speech Naturalness",
		Description: "How natural and human-like does the speech sound?",
		ServiceType: "tts", ScaleMin: 1, ScaleMax: 5},
	{ID: "tts_disfluency", Name: "Disfluency Handling",
		Description: "How well does the system handle pauses, hesitations, and speech disfluencies?",
		ServiceType: "tts", ScaleMin: 1, ScaleMax: 5},
	{ID: "tts_context", Name: "Context Awareness",
		Description: "How well does the speech reflect the context and meaning of the text?",
		ServiceType: "tts", ScaleMin: 1, ScaleMax: 5},
	{ID: "tts_prosody", Name: "Prosody Accuracy",
		Description: "How accurate are the rhythm, stress, and intonation patterns?",
		ServiceType: "tts", ScaleMin: 1, ScaleMax: 5},
	{ID: "stt_disfluency", Name: "Disfluency Recognition",
		Description: "How well does the system recognize and handle speech disfluencies?",
		ServiceType: "stt", ScaleMin: 1, ScaleMax: 5},
	{ID: "stt_language_switch", Name: "Language Switching Accuracy",
		Description: "How accurately does the system handle language switches within speech?",
		ServiceType: "stt", ScaleMin: 1, ScaleMax: 5},
}

// SeedSubjectiveMetrics inserts the shipped evaluation catalog if absent.
// Safe to call at every startup.
func (s *Store) SeedSubjectiveMetrics(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range defaultSubjectiveMetrics {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO subjective_metrics
				 (id, name, description, service_type, scale_min, scale_max, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				m.ID, m.Name, nullable(m.Description), m.ServiceType,
				m.ScaleMin, m.ScaleMax, formatTime(time.Now()),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}
		return nil
	})
}

// ListSubjectiveMetrics returns the catalog ordered by service type and name.
// A non-empty serviceType filters to that service.
func (s *Store) ListSubjectiveMetrics(ctx context.Context, serviceType string) ([]SubjectiveMetric, error) {
	query := `SELECT id, name, COALESCE(description, ''), service_type, scale_min, scale_max
	          FROM subjective_metrics`
	args := []any{}
	if serviceType != "" {
		query += ` WHERE service_type = ?`
		args = append(args, serviceType)
	}
	query += ` ORDER BY service_type, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []SubjectiveMetric
	for rows.Next() {
		var m SubjectiveMetric
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.ServiceType,
			&m.ScaleMin, &m.ScaleMax); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// SubmitRatings stores one user's scores for a run item, replacing any
// earlier scores by the same user for the same metrics. The whole batch is
// validated and committed together.
func (s *Store) SubmitRatings(ctx context.Context, sub RatingSubmission) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM run_items WHERE id = ?`, sub.RunItemID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("run item %s: %w", sub.RunItemID, ErrNotFound)
		}

		for metricID, rating := range sub.Ratings {
			var scaleMin, scaleMax int
			err := tx.QueryRowContext(ctx,
				`SELECT scale_min, scale_max FROM subjective_metrics WHERE id = ?`,
				metricID).Scan(&scaleMin, &scaleMax)
			if errors.Is(err, sql.ErrNoRows) {
				return &RatingError{Metric: metricID, Message: "unknown subjective metric"}
			}
			if err != nil {
				return err
			}
			if rating < scaleMin || rating > scaleMax {
				return &RatingError{Metric: metricID,
					Message: fmt.Sprintf("rating %d outside scale %d-%d", rating, scaleMin, scaleMax)}
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO user_ratings
				 (id, run_item_id, user_name, subjective_metric_id, rating, comment, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (run_item_id, user_name, subjective_metric_id)
				 DO UPDATE SET rating = excluded.rating, comment = excluded.comment,
				               created_at = excluded.created_at`,
				uuid.NewString(), sub.RunItemID, sub.UserName, metricID,
				rating, nullable(sub.Comments[metricID]), formatTime(time.Now()),
			)
			if err != nil {
				return wrapWriteError(err)
			}
		}
		return nil
	})
}

// ItemRatings returns per-metric averages, the individual scores and the
// distinct rater count for a run item. An unrated item yields empty slices.
func (s *Store) ItemRatings(ctx context.Context, runItemID string) (*ItemRatings, error) {
	out := &ItemRatings{RunItemID: runItemID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ur.subjective_metric_id, sm.name, COALESCE(sm.description, ''),
		        sm.service_type, sm.scale_min, sm.scale_max,
		        AVG(ur.rating), COUNT(ur.rating)
		 FROM user_ratings ur
		 JOIN subjective_metrics sm ON ur.subjective_metric_id = sm.id
		 WHERE ur.run_item_id = ?
		 GROUP BY ur.subjective_metric_id
		 ORDER BY sm.service_type, sm.name`, runItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a RatingAverage
		if err := rows.Scan(&a.MetricID, &a.Name, &a.Description, &a.ServiceType,
			&a.ScaleMin, &a.ScaleMax, &a.AvgRating, &a.RatingCount); err != nil {
			return nil, err
		}
		out.Averages = append(out.Averages, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.Ratings, err = s.queryRatings(ctx,
		`WHERE ur.run_item_id = ? ORDER BY ur.created_at DESC`, runItemID)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_name) FROM user_ratings WHERE run_item_id = ?`,
		runItemID).Scan(&out.UniqueUsers)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserItemRatings returns one user's scores for a run item.
func (s *Store) UserItemRatings(ctx context.Context, runItemID, userName string) ([]UserRating, error) {
	return s.queryRatings(ctx,
		`WHERE ur.run_item_id = ? AND ur.user_name = ? ORDER BY ur.created_at DESC`,
		runItemID, userName)
}

func (s *Store) queryRatings(ctx context.Context, clause string, args ...any) ([]UserRating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ur.id, ur.run_item_id, ur.user_name, ur.subjective_metric_id,
		        sm.name, ur.rating, COALESCE(ur.comment, ''), ur.created_at
		 FROM user_ratings ur
		 JOIN subjective_metrics sm ON ur.subjective_metric_id = sm.id `+clause,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []UserRating
	for rows.Next() {
		var r UserRating
		var createdAt string
		if err := rows.Scan(&r.ID, &r.RunItemID, &r.UserName, &r.MetricID,
			&r.MetricName, &r.Rating, &r.Comment, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
