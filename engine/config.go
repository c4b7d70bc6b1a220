package engine

import (
	"github.com/AltairaLabs/speechbench/audio"
	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/tts"
)

// Config readback helpers. Run configuration round-trips through the
// repository as JSON, so these work on the generic map representation.

func serviceOf(run *repository.Run) string {
	return cfgString(run.Config, "service")
}

func chainOf(run *repository.Run) ChainConfig {
	var chain ChainConfig
	if m, ok := run.Config["chain"].(map[string]any); ok {
		chain.TTSVendor, _ = m["tts_vendor"].(string)
		chain.STTVendor, _ = m["stt_vendor"].(string)
	}
	return chain
}

func cfgString(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func modelsFor(cfg map[string]any, vendor string) map[string]any {
	models, ok := cfg["models"].(map[string]any)
	if !ok {
		return nil
	}
	entry, _ := models[vendor].(map[string]any)
	return entry
}

// synthConfig builds the synthesis config for one vendor: run-wide voice
// and language, overridden by per-vendor model settings.
func (e *Engine) synthConfig(run *repository.Run, vendor string) tts.SynthesisConfig {
	cfg := tts.DefaultSynthesisConfig()
	cfg.Voice = cfgString(run.Config, "voice_id")
	cfg.Language = cfgString(run.Config, "language")

	m := modelsFor(run.Config, vendor)
	if v, ok := m["voice_id"].(string); ok && v != "" {
		cfg.Voice = v
	}
	if v, ok := m["tts_model"].(string); ok && v != "" {
		cfg.Model = v
	}
	return cfg
}

// transcriptionConfig builds the transcription config for one vendor. The
// format follows the audio content type actually produced upstream.
func (e *Engine) transcriptionConfig(run *repository.Run, vendor, contentType string) stt.TranscriptionConfig {
	cfg := stt.DefaultTranscriptionConfig()
	if lang := cfgString(run.Config, "language"); lang != "" {
		cfg.Language = lang
	}

	m := modelsFor(run.Config, vendor)
	if v, ok := m["stt_model"].(string); ok && v != "" {
		cfg.Model = v
	}

	switch ext := audio.ExtensionFor(contentType); ext {
	case "mp3", "wav", "ogg", "flac":
		cfg.Format = ext
	}
	return cfg
}

// evaluationConfig is transcriptionConfig with vendor-side smart formatting
// turned off: formatted numbers and currency would count as word errors
// against the plain reference text. Punctuation stays on.
func (e *Engine) evaluationConfig(run *repository.Run, vendor, contentType string) stt.TranscriptionConfig {
	cfg := e.transcriptionConfig(run, vendor, contentType)
	smartFormat, punctuate := false, true
	cfg.SmartFormat = &smartFormat
	cfg.Punctuate = &punctuate
	return cfg
}
