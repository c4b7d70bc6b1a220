package metrics

// NormalizeConfidence maps a raw vendor confidence score onto [0,1].
//
// Vendors disagree on scale: some report probabilities, some percentages,
// some nothing at all. A nil score maps to 0.0; values in (1, 100] are taken
// as percentages and divided by 100; everything else clamps to [0,1].
//
// Normalized scores remain vendor-defined hints. Never compare them across
// vendors without documented calibration.
func NormalizeConfidence(raw *float64) float64 {
	if raw == nil {
		return 0.0
	}
	c := *raw
	switch {
	case c < 0:
		return 0.0
	case c > 1 && c <= 100:
		return c / 100
	case c > 100:
		return 1.0
	default:
		return c
	}
}
