// Package metrics implements the objective measurements recorded for every
// benchmark attempt: latencies, word error rate, accuracy, real-time factor,
// audio duration and vendor confidence.
//
// The metric name vocabulary is closed. Every recorded measurement uses one of
// the names below with its fixed unit; the repository rejects duplicates per
// run item.
package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// Metric names. The vocabulary is closed: no other names are ever recorded.
const (
	TTSLatency    = "tts_latency"    // seconds, synthesize call duration
	TTSTTFB       = "tts_ttfb"       // seconds, time to first streamed byte
	STTLatency    = "stt_latency"    // seconds, transcribe call incl. upload
	E2ELatency    = "e2e_latency"    // seconds, tts_latency + stt_latency
	AudioDuration = "audio_duration" // seconds, probed duration of audio
	TTSRTF        = "tts_rtf"        // x, tts_latency / audio_duration
	STTRTF        = "stt_rtf"        // x, stt_latency / audio_duration
	WER           = "wer"            // ratio, normalized word error rate
	Accuracy      = "accuracy"       // percent, 100 * max(0, 1 - wer)
	Confidence    = "confidence"     // ratio, vendor score normalized to [0,1]
)

// Units for metric values.
const (
	UnitSeconds = "seconds"
	UnitRatio   = "ratio"
	UnitPercent = "percent"
	UnitX       = "x"
)

// WERPassThreshold is the default pass/fail threshold attached to WER rows.
const WERPassThreshold = 0.15

// units maps every vocabulary name to its fixed unit.
var units = map[string]string{
	TTSLatency:    UnitSeconds,
	TTSTTFB:       UnitSeconds,
	STTLatency:    UnitSeconds,
	E2ELatency:    UnitSeconds,
	AudioDuration: UnitSeconds,
	TTSRTF:        UnitX,
	STTRTF:        UnitX,
	WER:           UnitRatio,
	Accuracy:      UnitPercent,
	Confidence:    UnitRatio,
}

// UnitFor returns the fixed unit for a vocabulary name, or "" if the name is
// not part of the closed vocabulary.
func UnitFor(name string) string {
	return units[name]
}

// Known reports whether name belongs to the closed vocabulary.
func Known(name string) bool {
	_, ok := units[name]
	return ok
}

// ServiceType identifies which capability a run item exercised.
type ServiceType string

const (
	ServiceTTS ServiceType = "tts"
	ServiceSTT ServiceType = "stt"
	ServiceE2E ServiceType = "e2e"
)

// allowedByService lists the names a completed item of each service type may
// record. TTFB and RTF entries are conditional (streaming vendors, valid
// durations) so the sets are upper bounds, not exact requirements.
var allowedByService = map[ServiceType]map[string]bool{
	ServiceTTS: {
		TTSLatency: true, TTSTTFB: true, AudioDuration: true, TTSRTF: true,
		WER: true, Accuracy: true, Confidence: true,
	},
	ServiceSTT: {
		STTLatency: true, AudioDuration: true, STTRTF: true,
		WER: true, Accuracy: true, Confidence: true,
	},
	ServiceE2E: {
		TTSLatency: true, TTSTTFB: true, STTLatency: true, E2ELatency: true,
		AudioDuration: true, TTSRTF: true, STTRTF: true,
		WER: true, Accuracy: true, Confidence: true,
	},
}

// AllowedFor returns the vocabulary subset a completed item of the given
// service type may record.
func AllowedFor(service ServiceType) map[string]bool {
	out := make(map[string]bool, len(allowedByService[service]))
	for name := range allowedByService[service] {
		out[name] = true
	}
	return out
}

// ValidateNames checks that every name is permitted for the service type.
// It returns the offending names, sorted, or nil when all are allowed.
func ValidateNames(service ServiceType, names []string) []string {
	allowed := allowedByService[service]
	var extras []string
	for _, name := range names {
		if !allowed[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return extras
}

// Measurement is one named value attached to a run item.
type Measurement struct {
	Name  string
	Value float64
	Unit  string

	// Threshold and PassFail are populated for metrics with a documented
	// acceptance bar (currently only WER).
	Threshold *float64
	PassFail  string
}

// New builds a Measurement with the vocabulary unit for name.
func New(name string, value float64) Measurement {
	return Measurement{Name: name, Value: value, Unit: UnitFor(name)}
}

// NewWER builds the WER measurement with its pass/fail annotation.
func NewWER(value float64) Measurement {
	m := New(WER, value)
	threshold := WERPassThreshold
	m.Threshold = &threshold
	if value <= threshold {
		m.PassFail = "pass"
	} else {
		m.PassFail = "fail"
	}
	return m
}

// Summary renders measurements as the pipe-separated "name:value" string the
// dashboard consumes. The authoritative store remains the metric rows.
func Summary(ms []Measurement) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, fmt.Sprintf("%s:%.4f", m.Name, m.Value))
	}
	return strings.Join(parts, "|")
}
