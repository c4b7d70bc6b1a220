package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/speechbench/timing"
)

const (
	deepgramBaseURL       = "https://api.deepgram.com/v1"
	deepgramSpeakEndpoint = "/speak"

	// DeepgramModelAsteria is the default Aura voice model.
	DeepgramModelAsteria = "aura-asteria-en"
	// DeepgramModelOrion is a deep male Aura voice model.
	DeepgramModelOrion = "aura-orion-en"

	// Default timeout for Deepgram TTS requests.
	defaultDeepgramTimeout = 60 * time.Second

	// HTTP status code threshold for server errors.
	deepgramServerErrorThreshold = 500
)

// DeepgramService implements TTS using Deepgram's Aura API.
// Aura voices are identified by model name rather than a separate voice ID.
type DeepgramService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	model   string
}

// DeepgramOption configures the Deepgram TTS service.
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

// WithDeepgramModel sets the Aura voice model.
func WithDeepgramModel(model string) DeepgramOption {
	return func(s *DeepgramService) {
		s.model = model
	}
}

// NewDeepgram creates a Deepgram TTS service.
func NewDeepgram(apiKey string, opts ...DeepgramOption) *DeepgramService {
	s := &DeepgramService{
		apiKey:  apiKey,
		baseURL: deepgramBaseURL,
		client:  &http.Client{Timeout: defaultDeepgramTimeout, Transport: otelhttp.NewTransport(nil)},
		model:   DeepgramModelAsteria,
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

// deepgramRequest is the request body for the Aura speak API.
type deepgramRequest struct {
	Text string `json:"text"`
}

// Synthesize converts text to audio using Deepgram's Aura API.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *DeepgramService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	// Aura folds voice selection into the model name; an explicit voice in
	// the config overrides the configured model.
	model := config.Voice
	if model == "" {
		model = config.Model
	}
	if model == "" {
		model = s.model
	}

	bodyBytes, err := json.Marshal(deepgramRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	params := url.Values{}
	params.Set("model", model)
	if config.Format == "wav" {
		params.Set("encoding", "linear16")
		params.Set("container", "wav")
	}
	endpoint := s.baseURL + deepgramSpeakEndpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	sw := timing.Start()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError("deepgram", "", "request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	latency := sw.Elapsed()
	if err != nil {
		return nil, NewSynthesisError("deepgram", "", "failed to read audio", err, true)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &Result{
		Audio:       audio,
		ContentType: contentType,
		Latency:     latency,
		Metadata: map[string]string{
			"model":      model,
			"request_id": resp.Header.Get("dg-request-id"),
		},
	}, nil
}

// deepgramErrorResponse represents an error response from Deepgram.
type deepgramErrorResponse struct {
	ErrCode string `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// handleError processes an error response from Deepgram.
func (s *DeepgramService) handleError(resp *http.Response) error {
	var errResp deepgramErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return NewSynthesisError(
			"deepgram",
			fmt.Sprintf("%d", resp.StatusCode),
			"unknown error",
			err,
			resp.StatusCode >= deepgramServerErrorThreshold,
		)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= deepgramServerErrorThreshold

	var cause error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusBadRequest:
		cause = fmt.Errorf("bad request")
	}

	return NewSynthesisError(
		"deepgram",
		errResp.ErrCode,
		errResp.ErrMsg,
		cause,
		retryable,
	)
}

// SupportedVoices returns available Aura voice models.
func (s *DeepgramService) SupportedVoices() []Voice {
	return []Voice{
		{
			ID:          DeepgramModelAsteria,
			Name:        "Asteria",
			Language:    "en",
			Gender:      "female",
			Description: "American, clear, conversational",
		},
		{
			ID:          "aura-luna-en",
			Name:        "Luna",
			Language:    "en",
			Gender:      "female",
			Description: "American, soft",
		},
		{
			ID:          DeepgramModelOrion,
			Name:        "Orion",
			Language:    "en",
			Gender:      "male",
			Description: "American, deep",
		},
		{
			ID:          "aura-arcas-en",
			Name:        "Arcas",
			Language:    "en",
			Gender:      "male",
			Description: "American, natural",
		},
	}
}
