package metrics

import (
	"math"
	"strings"
	"testing"
)

func TestNormalizeConfidence(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"nil", nil, 0.0},
		{"probability", f(0.85), 0.85},
		{"zero", f(0.0), 0.0},
		{"one", f(1.0), 1.0},
		{"percentage", f(92.0), 0.92},
		{"just above one", f(1.5), 0.015},
		{"above hundred", f(250.0), 1.0},
		{"negative", f(-0.3), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeConfidence(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRTF(t *testing.T) {
	tests := []struct {
		name     string
		latency  float64
		duration float64
		want     float64
		ok       bool
	}{
		{"faster than real time", 0.5, 2.0, 0.25, true},
		{"slower than real time", 4.0, 2.0, 2.0, true},
		{"zero duration", 1.0, 0.0, 0, false},
		{"negative duration", 1.0, -1.0, 0, false},
		{"negative latency", -1.0, 2.0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RTF(tt.latency, tt.duration)
			if ok != tt.ok {
				t.Fatalf("RTF() ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRTFAnomalous(t *testing.T) {
	tests := []struct {
		rtf  float64
		want bool
	}{
		{0.25, false},
		{1.0, false},
		{99.9, false},
		{0.005, true},
		{150.0, true},
	}
	for _, tt := range tests {
		if got := RTFAnomalous(tt.rtf); got != tt.want {
			t.Errorf("RTFAnomalous(%v) = %v, want %v", tt.rtf, got, tt.want)
		}
	}
}

func TestValidateNames(t *testing.T) {
	extras := ValidateNames(ServiceSTT, []string{STTLatency, WER, Accuracy, Confidence})
	if extras != nil {
		t.Errorf("ValidateNames() extras = %v, want nil", extras)
	}

	extras = ValidateNames(ServiceSTT, []string{STTLatency, TTSLatency, E2ELatency})
	if len(extras) != 2 {
		t.Fatalf("ValidateNames() extras = %v, want 2 entries", extras)
	}
	if extras[0] != E2ELatency || extras[1] != TTSLatency {
		t.Errorf("ValidateNames() extras = %v, want sorted [e2e_latency tts_latency]", extras)
	}
}

func TestAllowedFor_IsACopy(t *testing.T) {
	allowed := AllowedFor(ServiceTTS)
	allowed["bogus"] = true

	if AllowedFor(ServiceTTS)["bogus"] {
		t.Error("AllowedFor() returned shared map")
	}
}

func TestNewWER(t *testing.T) {
	m := NewWER(0.1)
	if m.PassFail != "pass" {
		t.Errorf("NewWER(0.1).PassFail = %v, want pass", m.PassFail)
	}
	if m.Threshold == nil || *m.Threshold != WERPassThreshold {
		t.Errorf("NewWER(0.1).Threshold = %v, want %v", m.Threshold, WERPassThreshold)
	}

	m = NewWER(0.4)
	if m.PassFail != "fail" {
		t.Errorf("NewWER(0.4).PassFail = %v, want fail", m.PassFail)
	}
	if m.Unit != UnitRatio {
		t.Errorf("NewWER(0.4).Unit = %v, want ratio", m.Unit)
	}
}

func TestSummary(t *testing.T) {
	ms := []Measurement{
		New(TTSLatency, 0.5),
		New(AudioDuration, 2.0),
		New(WER, 0.0),
	}
	got := Summary(ms)
	want := "tts_latency:0.5000|audio_duration:2.0000|wer:0.0000"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	if !strings.Contains(got, "|") {
		t.Error("Summary() missing pipe separator")
	}

	if Summary(nil) != "" {
		t.Errorf("Summary(nil) = %q, want empty", Summary(nil))
	}
}

func TestUnitFor(t *testing.T) {
	if UnitFor(TTSRTF) != UnitX {
		t.Errorf("UnitFor(tts_rtf) = %v, want x", UnitFor(TTSRTF))
	}
	if UnitFor("nope") != "" {
		t.Errorf("UnitFor(nope) = %v, want empty", UnitFor("nope"))
	}
	if !Known(Accuracy) || Known("nope") {
		t.Error("Known() misclassified vocabulary membership")
	}
}
