package stt

import (
	"context"
)

const (
	// Default audio settings for raw PCM input.
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultBitDepth   = 16

	// Common audio formats.
	FormatPCM = "pcm"
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// Service transcribes audio to text.
// This interface abstracts different STT providers (Deepgram, ElevenLabs,
// OpenAI Whisper, Azure OpenAI) so benchmark runs can compare them against
// the same audio.
type Service interface {
	// Name returns the provider identifier (for logging/metric labels).
	Name() string

	// Transcribe converts audio to text and returns the result with its
	// measured latency.
	Transcribe(ctx context.Context, audio []byte, config TranscriptionConfig) (*Result, error)

	// SupportedFormats returns supported audio input formats.
	// Common values: "pcm", "wav", "mp3", "m4a", "webm"
	SupportedFormats() []string
}

// Result is a completed transcription with its timing measurements.
//
// Latency spans from just before the request to after the response body was
// received. Audio upload happens inside the request, so unlike synthesis the
// transfer of input data is part of the measured latency.
type Result struct {
	// Transcript is the transcribed text.
	Transcript string

	// Confidence is the vendor-reported confidence, when the provider
	// supplies one. Raw vendor scales vary; normalization happens at
	// metric computation, not here.
	Confidence *float64

	// Latency is the transcription wall time in seconds.
	Latency float64

	// VendorDuration is the audio duration in seconds when the vendor
	// reports one, 0 otherwise.
	VendorDuration float64

	// Metadata carries provider-specific response details (model,
	// request IDs, detected language).
	Metadata map[string]string
}

// TranscriptionConfig configures speech-to-text transcription.
type TranscriptionConfig struct {
	// Format is the audio format ("pcm", "wav", "mp3").
	// Default: "pcm"
	Format string

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000
	SampleRate int

	// Channels is the number of audio channels (1=mono, 2=stereo).
	// Default: 1
	Channels int

	// BitDepth is the bits per sample for PCM audio.
	// Default: 16
	BitDepth int

	// Language is a hint for the transcription language (e.g., "en", "es").
	// Optional - improves accuracy if provided.
	Language string

	// Model is the STT model to use (provider-specific).
	Model string

	// SmartFormat toggles vendor-side formatting of numbers, dates and
	// currency in the transcript. Nil keeps the provider default (enabled
	// on Deepgram). Accuracy scoring disables it so formatting differences
	// against the plain reference text do not count as word errors.
	SmartFormat *bool

	// Punctuate toggles punctuation independently of SmartFormat. Ignored
	// by providers without the option.
	Punctuate *bool
}

// DefaultTranscriptionConfig returns sensible defaults for transcription.
func DefaultTranscriptionConfig() TranscriptionConfig {
	return TranscriptionConfig{
		Format:     FormatPCM,
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
		Language:   "en",
	}
}

// withDefaults fills zero-valued fields so adapters share one rule for the
// PCM wrapping parameters.
func (c TranscriptionConfig) withDefaults() TranscriptionConfig {
	if c.Format == "" {
		c.Format = FormatPCM
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.BitDepth == 0 {
		c.BitDepth = DefaultBitDepth
	}
	return c
}
