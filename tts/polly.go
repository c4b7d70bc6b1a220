package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/AltairaLabs/speechbench/timing"
)

// pollyDefaultVoice is Joanna, the conventional US English neural voice.
const pollyDefaultVoice = "Joanna"

// pollyClient is the subset of the Polly API the adapter needs. The SDK
// client satisfies it; tests substitute a stub.
type pollyClient interface {
	SynthesizeSpeech(
		ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options),
	) (*polly.SynthesizeSpeechOutput, error)
}

// PollyService implements TTS using Amazon Polly. Credentials and region
// resolve through the standard AWS environment chain.
type PollyService struct {
	client pollyClient
	engine pollytypes.Engine
}

// PollyOption configures the Polly TTS service.
type PollyOption func(*PollyService)

// WithPollyClient sets a custom Polly client.
func WithPollyClient(client pollyClient) PollyOption {
	return func(s *PollyService) {
		s.client = client
	}
}

// WithPollyEngine selects the synthesis engine ("standard" or "neural").
func WithPollyEngine(engine string) PollyOption {
	return func(s *PollyService) {
		s.engine = pollytypes.Engine(engine)
	}
}

// NewPolly creates an Amazon Polly TTS service using the default AWS
// configuration chain.
func NewPolly(ctx context.Context, opts ...PollyOption) (*PollyService, error) {
	s := &PollyService{
		engine: pollytypes.EngineNeural,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s.client = polly.NewFromConfig(cfg)
	}
	return s, nil
}

// Name returns the provider identifier.
func (s *PollyService) Name() string {
	return "aws"
}

// Synthesize converts text to audio using Amazon Polly.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *PollyService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := config.Voice
	if voice == "" {
		voice = pollyDefaultVoice
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      pollytypes.VoiceId(voice),
		OutputFormat: s.mapFormat(config.Format),
		Engine:       s.engine,
	}
	if config.Language != "" {
		input.LanguageCode = pollytypes.LanguageCode(config.Language)
	}

	sw := timing.Start()

	out, err := s.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, NewSynthesisError("aws", "", "synthesize speech failed", err, pollyRetryable(err))
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	latency := sw.Elapsed()
	if err != nil {
		return nil, NewSynthesisError("aws", "", "failed to read audio", err, true)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &Result{
		Audio:       audio,
		ContentType: contentType,
		Latency:     latency,
		Metadata: map[string]string{
			"voice":              voice,
			"engine":             string(s.engine),
			"request_characters": fmt.Sprintf("%d", out.RequestCharacters),
		},
	}, nil
}

func (s *PollyService) mapFormat(format string) pollytypes.OutputFormat {
	switch format {
	case "ogg":
		return pollytypes.OutputFormatOggVorbis
	case "pcm":
		return pollytypes.OutputFormatPcm
	default:
		return pollytypes.OutputFormatMp3
	}
}

// pollyRetryable classifies SDK errors. Throttling and service faults are
// worth a retry; validation and auth failures are not.
func pollyRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "serviceunavailable") ||
		strings.Contains(msg, "internal")
}

// SupportedVoices returns a sample of available Polly voices.
func (s *PollyService) SupportedVoices() []Voice {
	return []Voice{
		{
			ID:          "Joanna",
			Name:        "Joanna",
			Language:    "en-US",
			Gender:      "female",
			Description: "American, neural",
		},
		{
			ID:          "Matthew",
			Name:        "Matthew",
			Language:    "en-US",
			Gender:      "male",
			Description: "American, neural",
		},
		{
			ID:          "Amy",
			Name:        "Amy",
			Language:    "en-GB",
			Gender:      "female",
			Description: "British, neural",
		},
		{
			ID:          "Brian",
			Name:        "Brian",
			Language:    "en-GB",
			Gender:      "male",
			Description: "British, neural",
		},
	}
}
