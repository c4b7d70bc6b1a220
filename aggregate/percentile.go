package aggregate

import (
	"context"
	"fmt"
	"time"
)

// validLatencyMetrics are the metrics the percentile view accepts.
var validLatencyMetrics = map[string]bool{
	"e2e_latency": true,
	"tts_latency": true,
	"stt_latency": true,
}

// InvalidMetricError rejects a percentile request for a non-latency metric.
type InvalidMetricError struct {
	Metric string
}

func (e *InvalidMetricError) Error() string {
	return fmt.Sprintf("invalid metric %q: use e2e_latency, tts_latency or stt_latency", e.Metric)
}

// LatencyPercentiles is the percentile view for one latency metric. P50 and
// P90 are nil when the window holds no samples.
type LatencyPercentiles struct {
	Metric string   `json:"metric"`
	Days   int      `json:"days"`
	Count  int      `json:"count"`
	P50    *float64 `json:"p50"`
	P90    *float64 `json:"p90"`
}

// LatencyPercentiles computes p50/p90 for one latency metric over the last
// days. days <= 0 takes the service lookback.
func (s *Service) LatencyPercentiles(ctx context.Context, metric string, days int) (*LatencyPercentiles, error) {
	if !validLatencyMetrics[metric] {
		return nil, &InvalidMetricError{Metric: metric}
	}
	if days <= 0 {
		days = s.lookbackDays
	}

	now := time.Now()
	values, err := s.store.MetricValuesInWindow(ctx, metric, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, fmt.Errorf("window query: %w", err)
	}

	result := &LatencyPercentiles{Metric: metric, Days: days, Count: len(values)}
	if p, ok := Percentile(values, 0.5); ok {
		v := roundTo(p, 4)
		result.P50 = &v
	}
	if p, ok := Percentile(values, 0.9); ok {
		v := roundTo(p, 4)
		result.P90 = &v
	}
	return result, nil
}

// Percentile computes the p-quantile of an ascending-sorted sample by linear
// interpolation at fractional index p*(n-1). The boolean return is false for
// an empty sample.
func Percentile(sorted []float64, p float64) (float64, bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return sorted[0], true
	}

	k := p * float64(n-1)
	f := int(k)
	c := f + 1
	if c > n-1 {
		c = n - 1
	}
	if f == c {
		return sorted[f], true
	}
	return sorted[f]*(float64(c)-k) + sorted[c]*(k-float64(f)), true
}
