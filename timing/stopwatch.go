// Package timing provides the monotonic stopwatch used for every latency and
// TTFB measurement in the harness.
//
// All vendor-call timings MUST go through Stopwatch: time.Time carries a
// monotonic clock reading, so elapsed values are immune to wall-clock
// adjustments. Wall-clock timestamps are reserved for human-readable
// started_at / finished_at fields.
package timing

import "time"

// Stopwatch measures elapsed time from a fixed starting point.
// The zero value is not usable; obtain one with Start.
type Stopwatch struct {
	start time.Time
}

// Start begins a new measurement.
func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Elapsed returns the seconds since Start with sub-millisecond precision.
func (s Stopwatch) Elapsed() float64 {
	return time.Since(s.start).Seconds()
}

// ElapsedDuration returns the elapsed time as a time.Duration.
func (s Stopwatch) ElapsedDuration() time.Duration {
	return time.Since(s.start)
}
