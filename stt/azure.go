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
	azureDefaultAPIVersion = "2024-06-01"
	azureDefaultDeployment = "whisper"
	defaultAzureTimeout    = 120 * time.Second

	// HTTP status code threshold for server errors.
	azureServerErrorThreshold = 500
)

// AzureOpenAIService implements STT using a Whisper deployment on Azure
// OpenAI. The endpoint is resource-specific
// (https://{resource}.openai.azure.com) and the deployment name selects the
// model, so there is no separate model field.
type AzureOpenAIService struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
}

// AzureOption configures the Azure OpenAI STT service.
type AzureOption func(*AzureOpenAIService)

// WithAzureDeployment sets the Whisper deployment name.
func WithAzureDeployment(deployment string) AzureOption {
	return func(s *AzureOpenAIService) {
		s.deployment = deployment
	}
}

// WithAzureAPIVersion sets the API version query parameter.
func WithAzureAPIVersion(version string) AzureOption {
	return func(s *AzureOpenAIService) {
		s.apiVersion = version
	}
}

// WithAzureClient sets a custom HTTP client.
func WithAzureClient(client *http.Client) AzureOption {
	return func(s *AzureOpenAIService) {
		s.client = client
	}
}

// NewAzureOpenAI creates an Azure OpenAI STT service.
func NewAzureOpenAI(apiKey, endpoint string, opts ...AzureOption) *AzureOpenAIService {
	s := &AzureOpenAIService{
		apiKey:     apiKey,
		endpoint:   endpoint,
		deployment: azureDefaultDeployment,
		apiVersion: azureDefaultAPIVersion,
		client:     &http.Client{Timeout: defaultAzureTimeout, Transport: otelhttp.NewTransport(nil)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *AzureOpenAIService) Name() string {
	return "azure_openai"
}

// Transcribe converts audio to text using an Azure OpenAI Whisper deployment.
//
//nolint:gocritic // hugeParam: TranscriptionConfig passed by value to satisfy Service interface
func (s *AzureOpenAIService) Transcribe(
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

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if config.Language != "" {
		if err := writer.WriteField("language", config.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/openai/deployments/%s/audio/transcriptions?api-version=%s",
		s.endpoint, s.deployment, s.apiVersion,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	sw := timing.Start()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewTranscriptionError("azure_openai", "", "request failed", err, true)
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

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &Result{
		Transcript: result.Text,
		Latency:    latency,
		Metadata: map[string]string{
			"deployment": s.deployment,
		},
	}, nil
}

// handleError processes an error response from Azure OpenAI.
func (s *AzureOpenAIService) handleError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return NewTranscriptionError(
			"azure_openai",
			fmt.Sprintf("%d", statusCode),
			string(body),
			nil,
			statusCode >= azureServerErrorThreshold,
		)
	}

	retryable := statusCode == http.StatusTooManyRequests ||
		statusCode >= azureServerErrorThreshold

	var cause error
	switch statusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	}

	return NewTranscriptionError(
		"azure_openai",
		errResp.Error.Code,
		errResp.Error.Message,
		cause,
		retryable,
	)
}

// SupportedFormats returns audio formats supported by Azure Whisper.
func (s *AzureOpenAIService) SupportedFormats() []string {
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
