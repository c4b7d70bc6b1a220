package vendors

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/tts"
)

type fakeTTS struct {
	name string
}

func (f *fakeTTS) Name() string { return f.name }

func (f *fakeTTS) Synthesize(_ context.Context, _ string, _ tts.SynthesisConfig) (*tts.Result, error) {
	return &tts.Result{Audio: []byte("audio"), ContentType: "audio/mpeg", Latency: 0.1}, nil
}

func (f *fakeTTS) SupportedVoices() []tts.Voice { return nil }

type fakeSTT struct {
	name string
}

func (f *fakeSTT) Name() string { return f.name }

func (f *fakeSTT) Transcribe(_ context.Context, _ []byte, _ stt.TranscriptionConfig) (*stt.Result, error) {
	return &stt.Result{Transcript: "hello", Latency: 0.1}, nil
}

func (f *fakeSTT) SupportedFormats() []string { return []string{"wav"} }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterTTS(&fakeTTS{name: "elevenlabs"})
	r.RegisterSTT(&fakeSTT{name: "deepgram"})

	svc, err := r.TTS("elevenlabs")
	if err != nil {
		t.Fatalf("TTS lookup failed: %v", err)
	}
	if svc.Name() != "elevenlabs" {
		t.Errorf("expected elevenlabs, got %s", svc.Name())
	}

	sttSvc, err := r.STT("deepgram")
	if err != nil {
		t.Fatalf("STT lookup failed: %v", err)
	}
	if sttSvc.Name() != "deepgram" {
		t.Errorf("expected deepgram, got %s", sttSvc.Name())
	}
}

func TestRegistry_UnknownVendor(t *testing.T) {
	r := NewRegistry()
	r.RegisterTTS(&fakeTTS{name: "openai"})
	r.RegisterTTS(&fakeTTS{name: "cartesia"})

	_, err := r.TTS("nope")
	if err == nil {
		t.Fatal("expected error for unknown vendor")
	}

	var unknownErr *UnknownVendorError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownVendorError, got %T", err)
	}
	if unknownErr.Vendor != "nope" {
		t.Errorf("expected vendor nope, got %s", unknownErr.Vendor)
	}
	if unknownErr.Capability != CapabilityTTS {
		t.Errorf("expected tts capability, got %s", unknownErr.Capability)
	}
	// Message should list what is actually registered
	if !strings.Contains(err.Error(), "cartesia") || !strings.Contains(err.Error(), "openai") {
		t.Errorf("expected available vendors in message, got: %s", err.Error())
	}
}

func TestRegistry_UnknownSTTVendor(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT(&fakeSTT{name: "deepgram"})

	// A vendor registered only for TTS is unknown to STT lookups
	r.RegisterTTS(&fakeTTS{name: "cartesia"})

	_, err := r.STT("cartesia")
	if err == nil {
		t.Fatal("expected error for TTS-only vendor on STT lookup")
	}

	var unknownErr *UnknownVendorError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownVendorError, got %T", err)
	}
	if unknownErr.Capability != CapabilitySTT {
		t.Errorf("expected stt capability, got %s", unknownErr.Capability)
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	r.RegisterTTS(&fakeTTS{name: "elevenlabs"})
	r.RegisterSTT(&fakeSTT{name: "elevenlabs"})
	r.RegisterSTT(&fakeSTT{name: "azure_openai"})

	tests := []struct {
		vendor     string
		capability Capability
		want       bool
	}{
		{"elevenlabs", CapabilityTTS, true},
		{"elevenlabs", CapabilitySTT, true},
		{"azure_openai", CapabilitySTT, true},
		{"azure_openai", CapabilityTTS, false},
		{"missing", CapabilityTTS, false},
		{"elevenlabs", Capability("bogus"), false},
	}

	for _, tt := range tests {
		if got := r.Has(tt.vendor, tt.capability); got != tt.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tt.vendor, tt.capability, got, tt.want)
		}
	}
}

func TestRegistry_VendorListsSorted(t *testing.T) {
	r := NewRegistry()
	r.RegisterTTS(&fakeTTS{name: "openai"})
	r.RegisterTTS(&fakeTTS{name: "aws"})
	r.RegisterTTS(&fakeTTS{name: "elevenlabs"})
	r.RegisterSTT(&fakeSTT{name: "deepgram"})
	r.RegisterSTT(&fakeSTT{name: "azure_openai"})

	ttsVendors := r.TTSVendors()
	want := []string{"aws", "elevenlabs", "openai"}
	if len(ttsVendors) != len(want) {
		t.Fatalf("expected %d tts vendors, got %d", len(want), len(ttsVendors))
	}
	for i, v := range want {
		if ttsVendors[i] != v {
			t.Errorf("tts vendors[%d] = %s, want %s", i, ttsVendors[i], v)
		}
	}

	sttVendors := r.STTVendors()
	if len(sttVendors) != 2 || sttVendors[0] != "azure_openai" || sttVendors[1] != "deepgram" {
		t.Errorf("unexpected stt vendor list: %v", sttVendors)
	}
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := &fakeTTS{name: "openai"}
	second := &fakeTTS{name: "openai"}

	r.RegisterTTS(first)
	r.RegisterTTS(second)

	svc, err := r.TTS("openai")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if svc != second {
		t.Error("expected re-registration to replace the adapter")
	}
	if len(r.TTSVendors()) != 1 {
		t.Errorf("expected 1 vendor, got %d", len(r.TTSVendors()))
	}
}

func TestRegistry_WaitWithoutLimiter(t *testing.T) {
	r := NewRegistry()

	// No limiter configured: must not block
	if err := r.Wait(context.Background(), "elevenlabs"); err != nil {
		t.Errorf("Wait without limiter should succeed, got: %v", err)
	}
}

func TestRegistry_WaitRespectsLimit(t *testing.T) {
	r := NewRegistry()
	r.SetRateLimit("deepgram", 100, 1)

	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx, "deepgram"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Burst of 1 at 100 rps: third call waits roughly 20ms total
	if elapsed < 10*time.Millisecond {
		t.Errorf("expected rate limiting to introduce delay, elapsed=%v", elapsed)
	}
}

func TestRegistry_WaitCancelled(t *testing.T) {
	r := NewRegistry()
	r.SetRateLimit("openai", 0.001, 1)

	ctx, cancel := context.WithCancel(context.Background())

	// Drain the burst token, then cancel while the next call would wait
	if err := r.Wait(ctx, "openai"); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}
	cancel()

	if err := r.Wait(ctx, "openai"); err == nil {
		t.Error("expected Wait to fail on cancelled context")
	}
}

func TestBuild_RegistersByCredential(t *testing.T) {
	r, err := Build(context.Background(), Credentials{
		ElevenLabsKey: "sk_test",
		DeepgramKey:   "dg_test",
		CartesiaKey:   "ct_test",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ttsVendors := r.TTSVendors()
	wantTTS := []string{"cartesia", "deepgram", "elevenlabs"}
	if len(ttsVendors) != len(wantTTS) {
		t.Fatalf("expected tts vendors %v, got %v", wantTTS, ttsVendors)
	}
	for i, v := range wantTTS {
		if ttsVendors[i] != v {
			t.Errorf("tts vendors[%d] = %s, want %s", i, ttsVendors[i], v)
		}
	}

	// Cartesia has no STT capability
	sttVendors := r.STTVendors()
	wantSTT := []string{"deepgram", "elevenlabs"}
	if len(sttVendors) != len(wantSTT) {
		t.Fatalf("expected stt vendors %v, got %v", wantSTT, sttVendors)
	}
}

func TestBuild_EmptyCredentials(t *testing.T) {
	r, err := Build(context.Background(), Credentials{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(r.TTSVendors()) != 0 || len(r.STTVendors()) != 0 {
		t.Error("expected no vendors for empty credentials")
	}
}
