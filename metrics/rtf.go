package metrics

// RTF anomaly bounds. Ratios outside (rtfAnomalyLow, rtfAnomalyHigh) are
// recorded but flagged so dashboards can surface suspicious measurements.
const (
	rtfAnomalyLow  = 0.01
	rtfAnomalyHigh = 100.0
)

// RTF computes a real-time factor: processing latency divided by audio
// duration. A factor below 1 means faster than real time.
//
// The second return is false when no ratio can be computed (non-positive
// duration or negative latency); callers must then omit the metric rather
// than record a degenerate value.
func RTF(latency, audioDuration float64) (float64, bool) {
	if audioDuration <= 0 {
		return 0, false
	}
	if latency < 0 {
		return 0, false
	}
	return latency / audioDuration, true
}

// RTFAnomalous reports whether a computed ratio is suspicious. Anomalous
// values are still recorded; the flag travels in the run-item sidecar.
func RTFAnomalous(rtf float64) bool {
	return rtf < rtfAnomalyLow || rtf > rtfAnomalyHigh
}
