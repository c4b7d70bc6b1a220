package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AltairaLabs/speechbench/aggregate"
	"github.com/AltairaLabs/speechbench/engine"
	"github.com/AltairaLabs/speechbench/logger"
	"github.com/AltairaLabs/speechbench/repository"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses: validation problems are
// the caller's fault, missing rows are 404, everything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *engine.ValidationError
	var metricErr *aggregate.InvalidMetricError
	var ratingErr *repository.RatingError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &metricErr), errors.As(err, &ratingErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
