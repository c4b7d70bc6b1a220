package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/speechbench/timing"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaWSURL   = "wss://api.cartesia.ai/tts/websocket"
	cartesiaRESTURL = "/tts/bytes"

	// CartesiaModelSonic is the latest Sonic model for Cartesia TTS.
	CartesiaModelSonic = "sonic-2024-10-01"

	// Default timeout for Cartesia requests.
	defaultCartesiaTimeout = 30 * time.Second

	// cartesiaDefaultVoice is the default voice ID (Barbershop Man).
	cartesiaDefaultVoice = "a0e99841-438c-4a64-b679-ae501e7d6091"

	// cartesiaAPIVersion pins the API protocol version.
	cartesiaAPIVersion = "2024-06-10"

	// HTTP status code threshold for server errors.
	serverErrorThreshold = 500

	// WebSocket streams deliver raw PCM at this rate.
	cartesiaStreamSampleRate = 24000

	// Audio sample rates for the REST path.
	sampleRate44100 = 44100
)

// CartesiaService implements TTS using Cartesia's ultra-low latency API.
//
// Synthesis goes over the streaming WebSocket when one is configured, which
// is the only transport where time-to-first-byte is observable. If the
// WebSocket cannot be dialed the REST bytes endpoint serves as fallback,
// trading the TTFB measurement for availability.
type CartesiaService struct {
	apiKey  string
	baseURL string
	wsURL   string
	client  *http.Client
	model   string
}

// CartesiaOption configures the Cartesia TTS service.
type CartesiaOption func(*CartesiaService)

// WithCartesiaBaseURL sets a custom base URL.
func WithCartesiaBaseURL(url string) CartesiaOption {
	return func(s *CartesiaService) {
		s.baseURL = url
	}
}

// WithCartesiaWSURL sets a custom WebSocket URL. An empty URL disables the
// streaming path entirely.
func WithCartesiaWSURL(url string) CartesiaOption {
	return func(s *CartesiaService) {
		s.wsURL = url
	}
}

// WithCartesiaClient sets a custom HTTP client.
func WithCartesiaClient(client *http.Client) CartesiaOption {
	return func(s *CartesiaService) {
		s.client = client
	}
}

// WithCartesiaModel sets the TTS model.
func WithCartesiaModel(model string) CartesiaOption {
	return func(s *CartesiaService) {
		s.model = model
	}
}

// NewCartesia creates a Cartesia TTS service.
func NewCartesia(apiKey string, opts ...CartesiaOption) *CartesiaService {
	s := &CartesiaService{
		apiKey:  apiKey,
		baseURL: cartesiaBaseURL,
		wsURL:   cartesiaWSURL,
		client:  &http.Client{Timeout: defaultCartesiaTimeout, Transport: otelhttp.NewTransport(nil)},
		model:   CartesiaModelSonic,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *CartesiaService) Name() string {
	return "cartesia"
}

// cartesiaRequest is the request body for Cartesia TTS API.
type cartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoiceConfig  `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language,omitempty"`
	ContextID    string               `json:"context_id,omitempty"`
}

type cartesiaVoiceConfig struct {
	Mode string `json:"mode"`
	ID   string `json:"id,omitempty"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize converts text to audio, preferring the streaming WebSocket.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *CartesiaService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := config.Voice
	if voice == "" {
		voice = cartesiaDefaultVoice
	}

	model := config.Model
	if model == "" {
		model = s.model
	}

	if s.wsURL != "" {
		res, err := s.synthesizeStream(ctx, text, voice, model, config.Language)
		if err == nil {
			return res, nil
		}
		if !isDialFailure(err) {
			return nil, err
		}
	}

	return s.synthesizeBytes(ctx, text, voice, model, config)
}

// synthesizeBytes calls the REST bytes endpoint. No TTFB is reported on this
// path.
func (s *CartesiaService) synthesizeBytes(
	ctx context.Context, text, voice, model string, config SynthesisConfig,
) (*Result, error) {
	outputFormat := s.mapFormat(config.Format)

	reqBody := cartesiaRequest{
		ModelID:    model,
		Transcript: text,
		Voice: cartesiaVoiceConfig{
			Mode: "id",
			ID:   voice,
		},
		OutputFormat: outputFormat,
		Language:     config.Language,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+cartesiaRESTURL,
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", cartesiaAPIVersion)

	sw := timing.Start()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError("cartesia", "", "request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	latency := sw.Elapsed()
	if err != nil {
		return nil, NewSynthesisError("cartesia", "", "failed to read audio", err, true)
	}

	return &Result{
		Audio:       audio,
		ContentType: contentTypeFor(outputFormat.Container),
		Latency:     latency,
		Metadata: map[string]string{
			"model":     model,
			"voice":     voice,
			"transport": "rest",
		},
	}, nil
}

func contentTypeFor(container string) string {
	switch container {
	case "wav":
		return "audio/wav"
	case "raw":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}

// mapFormat converts a format name to the Cartesia REST format config.
func (s *CartesiaService) mapFormat(format string) cartesiaOutputFormat {
	switch format {
	case "wav":
		return cartesiaOutputFormat{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: sampleRate44100,
		}
	case "pcm":
		return cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: cartesiaStreamSampleRate,
		}
	default:
		return cartesiaOutputFormat{
			Container:  "mp3",
			Encoding:   "mp3",
			SampleRate: sampleRate44100,
		}
	}
}

// cartesiaErrorResponse represents an error response from Cartesia.
type cartesiaErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleError processes an error response from Cartesia.
func (s *CartesiaService) handleError(resp *http.Response) error {
	var errResp cartesiaErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return NewSynthesisError(
			"cartesia",
			fmt.Sprintf("%d", resp.StatusCode),
			"unknown error",
			err,
			resp.StatusCode >= serverErrorThreshold,
		)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= serverErrorThreshold

	var cause error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusBadRequest:
		cause = fmt.Errorf("bad request")
	case http.StatusNotFound:
		cause = ErrInvalidVoice
	}

	message := errResp.Message
	if message == "" {
		message = errResp.Error
	}

	return NewSynthesisError(
		"cartesia",
		errResp.Error,
		message,
		cause,
		retryable,
	)
}

// SupportedVoices returns a sample of available Cartesia voices.
func (s *CartesiaService) SupportedVoices() []Voice {
	return []Voice{
		{
			ID:          "a0e99841-438c-4a64-b679-ae501e7d6091",
			Name:        "Barbershop Man",
			Language:    "en",
			Gender:      "male",
			Description: "Deep, warm male voice",
		},
		{
			ID:          "156fb8d2-335b-4950-9cb3-a2d33befec77",
			Name:        "British Lady",
			Language:    "en",
			Gender:      "female",
			Description: "British accent, professional",
		},
		{
			ID:          "bf991597-6c13-47e4-8411-91ec2de5c466",
			Name:        "Confident Man",
			Language:    "en",
			Gender:      "male",
			Description: "Clear, confident delivery",
		},
	}
}
