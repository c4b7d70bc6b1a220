// Package aggregate derives the dashboard views from recorded runs: summary
// stats, the service mix and vendor usage breakdown, top chained pairings and
// latency percentiles, all over a configurable lookback window.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AltairaLabs/speechbench/repository"
)

// DefaultLookbackDays is the aggregation window when none is configured.
const DefaultLookbackDays = 7

// Service computes derived views over the repository.
type Service struct {
	store        *repository.Store
	lookbackDays int
}

// New builds the aggregation service. lookbackDays <= 0 takes the default.
func New(store *repository.Store, lookbackDays int) *Service {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Service{store: store, lookbackDays: lookbackDays}
}

// Stats is the dashboard summary.
type Stats struct {
	TotalRuns     int     `json:"total_runs"`
	CompletedRuns int     `json:"completed_runs"`
	TotalItems    int     `json:"total_items"`
	AvgWER        float64 `json:"avg_wer"`
	AvgAccuracy   float64 `json:"avg_accuracy"`
	AvgLatency    float64 `json:"avg_latency"`
	SuccessRate   float64 `json:"success_rate"`
}

// Stats computes the dashboard summary over the lookback window. With no
// runs in the window the success rate reads 100 and accuracy falls back to
// its optimistic default, matching what the dashboard has always shown on an
// empty system.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	since := s.cutoff()

	totalRuns, completedRuns, err := s.store.RunCountsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	totalItems, err := s.store.ItemCountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	avgWER, _, err := s.store.AvgMetricSince(ctx, "wer", since)
	if err != nil {
		return nil, fmt.Errorf("average wer: %w", err)
	}
	avgLatency, _, err := s.store.AvgLatencySince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("average latency: %w", err)
	}

	stats := &Stats{
		TotalRuns:     totalRuns,
		CompletedRuns: completedRuns,
		TotalItems:    totalItems,
		AvgWER:        roundTo(avgWER, 4),
		AvgAccuracy:   95.0,
		AvgLatency:    roundTo(avgLatency, 3),
		SuccessRate:   100.0,
	}
	if avgWER > 0 {
		stats.AvgAccuracy = roundTo((1-avgWER)*100, 2)
	}
	if totalRuns > 0 {
		stats.SuccessRate = roundTo(float64(completedRuns)/float64(totalRuns)*100, 2)
	}
	return stats, nil
}

func (s *Service) cutoff() time.Time {
	return time.Now().AddDate(0, 0, -s.lookbackDays)
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
