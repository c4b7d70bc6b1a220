package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAzureOpenAIService_Name(t *testing.T) {
	service := NewAzureOpenAI("test-key", "https://example.openai.azure.com")
	if service.Name() != "azure_openai" {
		t.Errorf("Name() = %v, want azure_openai", service.Name())
	}
}

func TestAzureOpenAIService_Transcribe_EmptyAudio(t *testing.T) {
	service := NewAzureOpenAI("test-key", "https://example.openai.azure.com")
	_, err := service.Transcribe(context.Background(), nil, TranscriptionConfig{})
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Transcribe() error = %v, want ErrEmptyAudio", err)
	}
}

func TestAzureOpenAIService_Transcribe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/openai/deployments/whisper-prod/audio/transcriptions"
		if r.URL.Path != wantPath {
			t.Errorf("Path = %v, want %v", r.URL.Path, wantPath)
		}
		if got := r.URL.Query().Get("api-version"); got != "2024-06-01" {
			t.Errorf("api-version = %v, want 2024-06-01", got)
		}
		if key := r.Header.Get("api-key"); key != "test-key" {
			t.Errorf("api-key = %v, want test-key", key)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %v, want multipart", r.Header.Get("Content-Type"))
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "azure transcript"})
	}))
	defer server.Close()

	service := NewAzureOpenAI("test-key", server.URL,
		WithAzureDeployment("whisper-prod"),
	)

	res, err := service.Transcribe(context.Background(), []byte("wav bytes"), TranscriptionConfig{
		Format: FormatWAV,
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if res.Transcript != "azure transcript" {
		t.Errorf("Transcript = %v, want azure transcript", res.Transcript)
	}
	if res.Metadata["deployment"] != "whisper-prod" {
		t.Errorf("deployment = %v, want whisper-prod", res.Metadata["deployment"])
	}
}

func TestAzureOpenAIService_Transcribe_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"message": "access denied",
				"code":    "401",
			},
		})
	}))
	defer server.Close()

	service := NewAzureOpenAI("bad-key", server.URL)

	_, err := service.Transcribe(context.Background(), []byte("audio"), TranscriptionConfig{Format: FormatWAV})
	var tErr *TranscriptionError
	if !errors.As(err, &tErr) {
		t.Fatalf("error type = %T, want *TranscriptionError", err)
	}
	if tErr.Retryable {
		t.Error("Retryable = true, want false for 401")
	}
}
