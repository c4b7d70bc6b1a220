package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/speechbench/audio"
	"github.com/AltairaLabs/speechbench/timing"
)

const (
	deepgramBaseURL        = "https://api.deepgram.com/v1"
	deepgramListenEndpoint = "/listen"

	// ModelNova2 is Deepgram's general-purpose Nova 2 model.
	ModelNova2 = "nova-2"

	// Default timeout for Deepgram STT requests.
	defaultDeepgramTimeout = 120 * time.Second

	// HTTP status code threshold for server errors.
	deepgramServerErrorThreshold = 500
)

// DeepgramService implements STT using Deepgram's pre-recorded listen API.
// Deepgram reports both a confidence score and the audio duration it
// measured, which downstream metric computation prefers over local probing.
type DeepgramService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	model   string
}

// DeepgramOption configures the Deepgram STT service.
type DeepgramOption func(*DeepgramService)

// WithDeepgramBaseURL sets a custom base URL.
func WithDeepgramBaseURL(url string) DeepgramOption {
	return func(s *DeepgramService) {
		s.baseURL = url
	}
}

// WithDeepgramClient sets a custom HTTP client.
func WithDeepgramClient(client *http.Client) DeepgramOption {
	return func(s *DeepgramService) {
		s.client = client
	}
}

// WithDeepgramModel sets the transcription model.
func WithDeepgramModel(model string) DeepgramOption {
	return func(s *DeepgramService) {
		s.model = model
	}
}

// NewDeepgram creates a Deepgram STT service.
func NewDeepgram(apiKey string, opts ...DeepgramOption) *DeepgramService {
	s := &DeepgramService{
		apiKey:  apiKey,
		baseURL: deepgramBaseURL,
		client:  &http.Client{Timeout: defaultDeepgramTimeout, Transport: otelhttp.NewTransport(nil)},
		model:   ModelNova2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *DeepgramService) Name() string {
	return "deepgram"
}

// deepgramResponse is the listen API response, reduced to the fields the
// benchmark consumes.
type deepgramResponse struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe converts audio to text using Deepgram's listen API.
//
//nolint:gocritic // hugeParam: TranscriptionConfig passed by value to satisfy Service interface
func (s *DeepgramService) Transcribe(
	ctx context.Context, audioData []byte, config TranscriptionConfig,
) (*Result, error) {
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	config = config.withDefaults()

	body := audioData
	contentType := contentTypeForFormat(config.Format)
	if config.Format == FormatPCM {
		body = audio.WrapPCMAsWAV(audioData, config.SampleRate, config.Channels, config.BitDepth)
		contentType = "audio/wav"
	}

	model := config.Model
	if model == "" {
		model = s.model
	}

	smartFormat := true
	if config.SmartFormat != nil {
		smartFormat = *config.SmartFormat
	}

	params := url.Values{}
	params.Set("model", model)
	params.Set("smart_format", strconv.FormatBool(smartFormat))
	if config.Punctuate != nil {
		params.Set("punctuate", strconv.FormatBool(*config.Punctuate))
	}
	if config.Language != "" {
		params.Set("language", config.Language)
	}
	endpoint := s.baseURL + deepgramListenEndpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", contentType)

	sw := timing.Start()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewTranscriptionError("deepgram", "", "request failed", err, true)
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

	var dgResp deepgramResponse
	if err := json.Unmarshal(respBody, &dgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &Result{
		Latency:        latency,
		VendorDuration: dgResp.Metadata.Duration,
		Metadata: map[string]string{
			"model":      model,
			"request_id": dgResp.Metadata.RequestID,
		},
	}

	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		alt := dgResp.Results.Channels[0].Alternatives[0]
		result.Transcript = alt.Transcript
		confidence := alt.Confidence
		result.Confidence = &confidence
	}

	return result, nil
}

func contentTypeForFormat(format string) string {
	switch format {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// deepgramErrorResponse represents an error response from Deepgram.
type deepgramErrorResponse struct {
	ErrCode string `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// handleError processes an error response from Deepgram.
func (s *DeepgramService) handleError(statusCode int, body []byte) error {
	var errResp deepgramErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return NewTranscriptionError(
			"deepgram",
			fmt.Sprintf("%d", statusCode),
			string(body),
			nil,
			statusCode >= deepgramServerErrorThreshold,
		)
	}

	retryable := statusCode == http.StatusTooManyRequests ||
		statusCode >= deepgramServerErrorThreshold

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
		"deepgram",
		errResp.ErrCode,
		errResp.ErrMsg,
		cause,
		retryable,
	)
}

// SupportedFormats returns audio formats supported by Deepgram.
func (s *DeepgramService) SupportedFormats() []string {
	return []string{
		"flac",
		"mp3",
		"ogg",
		"wav",
		"webm",
		"pcm", // Wrapped as WAV internally
	}
}
