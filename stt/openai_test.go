package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIService_Name(t *testing.T) {
	service := NewOpenAI("test-key")
	if service.Name() != "openai" {
		t.Errorf("Name() = %v, want openai", service.Name())
	}
}

func TestOpenAIService_Transcribe_EmptyAudio(t *testing.T) {
	service := NewOpenAI("test-key")
	_, err := service.Transcribe(context.Background(), nil, TranscriptionConfig{})
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Transcribe() error = %v, want ErrEmptyAudio", err)
	}
}

func TestOpenAIService_Transcribe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != openAITranscribeEndpoint {
			t.Errorf("Path = %v, want %v", r.URL.Path, openAITranscribeEndpoint)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %v, want Bearer test-key", auth)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("model"); got != ModelWhisper1 {
			t.Errorf("model = %v, want %v", got, ModelWhisper1)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		file.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("Filename = %v, want audio.wav", header.Filename)
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "hello from whisper"})
	}))
	defer server.Close()

	service := NewOpenAI("test-key", WithOpenAIBaseURL(server.URL))

	res, err := service.Transcribe(context.Background(), make([]byte, 3200), TranscriptionConfig{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if res.Transcript != "hello from whisper" {
		t.Errorf("Transcript = %v, want hello from whisper", res.Transcript)
	}
	if res.Confidence != nil {
		t.Errorf("Confidence = %v, want nil (Whisper reports none)", *res.Confidence)
	}
	if res.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", res.Latency)
	}
}

func TestOpenAIService_Transcribe_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"message": "slow down",
				"code":    "rate_limit_exceeded",
			},
		})
	}))
	defer server.Close()

	service := NewOpenAI("test-key", WithOpenAIBaseURL(server.URL))

	_, err := service.Transcribe(context.Background(), []byte("audio"), TranscriptionConfig{Format: FormatMP3})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}

	var tErr *TranscriptionError
	if errors.As(err, &tErr) && !tErr.Retryable {
		t.Error("Retryable = false, want true for 429")
	}
}
