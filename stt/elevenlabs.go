package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/speechbench/audio"
	"github.com/AltairaLabs/speechbench/timing"
)

const (
	elevenLabsBaseURL           = "https://api.elevenlabs.io/v1"
	elevenLabsSTTEndpoint       = "/speech-to-text"
	elevenLabsDefaultModel      = "scribe_v1"
	defaultElevenLabsSTTTimeout = 120 * time.Second

	// HTTP status code threshold for server errors.
	elevenLabsServerErrorThreshold = 500
)

// ElevenLabsService implements STT using ElevenLabs' Scribe API.
// Scribe reports a language probability which serves as the confidence
// signal for benchmark comparisons.
type ElevenLabsService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	model   string
}

// ElevenLabsOption configures the ElevenLabs STT service.
type ElevenLabsOption func(*ElevenLabsService)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.baseURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.client = client
	}
}

// WithElevenLabsModel sets the transcription model.
func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.model = model
	}
}

// NewElevenLabs creates an ElevenLabs STT service.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) *ElevenLabsService {
	s := &ElevenLabsService{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: defaultElevenLabsSTTTimeout, Transport: otelhttp.NewTransport(nil)},
		model:   elevenLabsDefaultModel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *ElevenLabsService) Name() string {
	return "elevenlabs"
}

// elevenLabsResponse is the Scribe API response.
type elevenLabsResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
}

// Transcribe converts audio to text using ElevenLabs' Scribe API.
//
//nolint:gocritic // hugeParam: TranscriptionConfig passed by value to satisfy Service interface
func (s *ElevenLabsService) Transcribe(
	ctx context.Context, audioData []byte, config TranscriptionConfig,
) (*Result, error) {
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	config = config.withDefaults()

	body := audioData
	filename := "audio." + config.Format
	if config.Format == FormatPCM {
		body = audio.WrapPCMAsWAV(audioData, config.SampleRate, config.Channels, config.BitDepth)
		filename = "audio.wav"
	}

	model := config.Model
	if model == "" {
		model = s.model
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model_id", model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+elevenLabsSTTEndpoint,
		&buf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	sw := timing.Start()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewTranscriptionError("elevenlabs", "", "request failed", err, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	latency := sw.Elapsed()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp.StatusCode, respBody)
	}

	var elResp elevenLabsResponse
	if err := json.Unmarshal(respBody, &elResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &Result{
		Transcript: elResp.Text,
		Latency:    latency,
		Metadata: map[string]string{
			"model":    model,
			"language": elResp.LanguageCode,
		},
	}
	if elResp.LanguageProbability > 0 {
		confidence := elResp.LanguageProbability
		result.Confidence = &confidence
	}

	return result, nil
}

// handleError processes an error response from ElevenLabs.
func (s *ElevenLabsService) handleError(statusCode int, body []byte) error {
	var errResp struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return NewTranscriptionError(
			"elevenlabs",
			fmt.Sprintf("%d", statusCode),
			string(body),
			nil,
			statusCode >= elevenLabsServerErrorThreshold,
		)
	}

	retryable := statusCode == http.StatusTooManyRequests ||
		statusCode >= elevenLabsServerErrorThreshold

	var cause error
	switch statusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusBadRequest:
		cause = ErrInvalidFormat
	}

	return NewTranscriptionError(
		"elevenlabs",
		errResp.Detail.Status,
		errResp.Detail.Message,
		cause,
		retryable,
	)
}

// SupportedFormats returns audio formats supported by Scribe.
func (s *ElevenLabsService) SupportedFormats() []string {
	return []string{
		"flac",
		"m4a",
		"mp3",
		"ogg",
		"wav",
		"webm",
		"pcm", // Wrapped as WAV internally
	}
}
