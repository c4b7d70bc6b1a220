package tts

import (
	"errors"
	"testing"
)

func TestSynthesisError_Error(t *testing.T) {
	err := NewSynthesisError("elevenlabs", "429", "rate limit hit", ErrRateLimited, true)

	want := "elevenlabs: rate limit hit: rate limit exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, ErrRateLimited) {
		t.Error("errors.Is failed to match wrapped cause")
	}
}

func TestSynthesisError_NoCause(t *testing.T) {
	err := NewSynthesisError("openai", "500", "server error", nil, true)

	want := "openai: server error"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}
}
