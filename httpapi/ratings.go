package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AltairaLabs/speechbench/engine"
	"github.com/AltairaLabs/speechbench/repository"
)

type subjectiveMetricPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ServiceType string `json:"service_type"`
	ScaleMin    int    `json:"scale_min"`
	ScaleMax    int    `json:"scale_max"`
}

func toSubjectiveMetricPayloads(metrics []repository.SubjectiveMetric) []subjectiveMetricPayload {
	out := make([]subjectiveMetricPayload, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, subjectiveMetricPayload{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			ServiceType: m.ServiceType,
			ScaleMin:    m.ScaleMin,
			ScaleMax:    m.ScaleMax,
		})
	}
	return out
}

func (s *Server) handleListSubjectiveMetrics(w http.ResponseWriter, r *http.Request) {
	serviceType := r.PathValue("service_type")
	if serviceType != "" && serviceType != "tts" && serviceType != "stt" {
		writeError(w, r, &engine.ValidationError{
			Field: "service_type", Message: "must be tts or stt"})
		return
	}

	metrics, err := s.store.ListSubjectiveMetrics(r.Context(), serviceType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subjective_metrics": toSubjectiveMetricPayloads(metrics),
	})
}

// submitRatingsRequest is the POST /api/user-ratings body: one user's scores
// for a run item, keyed by subjective metric id.
type submitRatingsRequest struct {
	RunItemID string            `json:"run_item_id"`
	UserName  string            `json:"user_name"`
	Ratings   map[string]int    `json:"ratings"`
	Comments  map[string]string `json:"comments"`
}

func (s *Server) handleSubmitRatings(w http.ResponseWriter, r *http.Request) {
	var req submitRatingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &engine.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}
	switch {
	case req.RunItemID == "":
		writeError(w, r, &engine.ValidationError{Field: "run_item_id", Message: "required"})
		return
	case req.UserName == "":
		writeError(w, r, &engine.ValidationError{Field: "user_name", Message: "required"})
		return
	case len(req.Ratings) == 0:
		writeError(w, r, &engine.ValidationError{Field: "ratings", Message: "at least one rating required"})
		return
	}

	err := s.store.SubmitRatings(r.Context(), repository.RatingSubmission{
		RunItemID: req.RunItemID,
		UserName:  req.UserName,
		Ratings:   req.Ratings,
		Comments:  req.Comments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "submitted",
		"user_name": req.UserName,
	})
}

type ratingAveragePayload struct {
	MetricID    string  `json:"subjective_metric_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ServiceType string  `json:"service_type"`
	ScaleMin    int     `json:"scale_min"`
	ScaleMax    int     `json:"scale_max"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

type userRatingPayload struct {
	ID         string    `json:"id"`
	RunItemID  string    `json:"run_item_id"`
	UserName   string    `json:"user_name"`
	MetricID   string    `json:"subjective_metric_id"`
	MetricName string    `json:"metric_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserRatingPayloads(ratings []repository.UserRating) []userRatingPayload {
	out := make([]userRatingPayload, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, userRatingPayload{
			ID:         r.ID,
			RunItemID:  r.RunItemID,
			UserName:   r.UserName,
			MetricID:   r.MetricID,
			MetricName: r.MetricName,
			Rating:     r.Rating,
			Comment:    r.Comment,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out
}

func (s *Server) handleItemRatings(w http.ResponseWriter, r *http.Request) {
	runItemID := r.PathValue("run_item_id")

	ratings, err := s.store.ItemRatings(r.Context(), runItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	averages := make([]ratingAveragePayload, 0, len(ratings.Averages))
	for _, a := range ratings.Averages {
		averages = append(averages, ratingAveragePayload{
			MetricID:    a.MetricID,
			Name:        a.Name,
			Description: a.Description,
			ServiceType: a.ServiceType,
			ScaleMin:    a.ScaleMin,
			ScaleMax:    a.ScaleMax,
			AvgRating:   a.AvgRating,
			RatingCount: a.RatingCount,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_item_id":       ratings.RunItemID,
		"average_ratings":   averages,
		"user_ratings":      toUserRatingPayloads(ratings.Ratings),
		"unique_user_count": ratings.UniqueUsers,
	})
}

func (s *Server) handleUserItemRatings(w http.ResponseWriter, r *http.Request) {
	runItemID := r.PathValue("run_item_id")
	userName := r.PathValue("user_name")

	ratings, err := s.store.UserItemRatings(r.Context(), runItemID, userName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_item_id": runItemID,
		"user_name":   userName,
		"ratings":     toUserRatingPayloads(ratings),
	})
}
