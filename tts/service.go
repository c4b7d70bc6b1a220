package tts

import (
	"context"
)

// Service converts text to speech audio.
// This interface abstracts different TTS providers (ElevenLabs, Deepgram,
// OpenAI, Cartesia, Polly) so benchmark runs can compare them interchangeably.
type Service interface {
	// Name returns the provider identifier (for logging/metric labels).
	Name() string

	// Synthesize converts text to audio and returns the fully buffered
	// result with its measured latency.
	Synthesize(ctx context.Context, text string, config SynthesisConfig) (*Result, error)

	// SupportedVoices returns available voices for this provider.
	SupportedVoices() []Voice
}

// Result is a completed synthesis with its timing measurements.
//
// Latency spans from just before the network request to after the last audio
// byte was received, so encoding the request body and writing artifacts to
// disk are excluded. TTFB is only set by adapters with a streaming transport;
// buffered HTTP adapters cannot observe first-byte time distinctly from a
// header round trip, so they leave it nil rather than report a fake.
type Result struct {
	// Audio is the complete synthesized audio.
	Audio []byte

	// ContentType is the audio MIME type as reported or requested.
	ContentType string

	// Latency is the synthesis wall time in seconds.
	Latency float64

	// TTFB is the time to first audio byte in seconds, when observable.
	TTFB *float64

	// VendorDuration is the audio duration in seconds when the vendor
	// reports one, 0 otherwise.
	VendorDuration float64

	// Metadata carries provider-specific response details (model,
	// character counts, request IDs).
	Metadata map[string]string
}

// SynthesisConfig configures text-to-speech synthesis.
type SynthesisConfig struct {
	// Voice is the voice ID to use for synthesis.
	// Available voices vary by provider - use SupportedVoices() to list options.
	Voice string

	// Format is the output audio format name ("mp3", "wav", "pcm", "ogg").
	// Default is MP3 for most providers.
	Format string

	// Speed is the speech rate multiplier (0.25-4.0, default 1.0).
	// Not all providers support speed adjustment.
	Speed float64

	// Language is the language code for synthesis (e.g., "en-US").
	// Required for some providers, optional for others.
	Language string

	// Model is the TTS model to use (provider-specific).
	Model string
}

// DefaultSynthesisConfig returns sensible defaults for synthesis.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Format: "mp3",
		Speed:  1.0,
	}
}

// Voice describes a TTS voice available from a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is a human-readable voice name.
	Name string

	// Language is the primary language code (e.g., "en", "es", "fr").
	Language string

	// Gender is the voice gender ("male", "female", "neutral").
	Gender string

	// Description provides additional voice characteristics.
	Description string
}
