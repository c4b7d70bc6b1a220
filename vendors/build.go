package vendors

import (
	"context"

	"github.com/AltairaLabs/speechbench/logger"
	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/tts"
)

// Credentials holds the vendor API keys available to this process.
// Empty fields simply leave that vendor unregistered; the registry reports
// what is actually available rather than failing at startup.
type Credentials struct {
	ElevenLabsKey string
	DeepgramKey   string
	OpenAIKey     string
	CartesiaKey   string

	// AWSRegion enables the Polly adapter. Credentials themselves come from
	// the standard AWS chain (env, shared config, instance role).
	AWSRegion string

	AzureOpenAIKey      string
	AzureOpenAIEndpoint string
}

// Build constructs a registry with an adapter for every vendor whose
// credentials are present.
func Build(ctx context.Context, creds Credentials) (*Registry, error) {
	r := NewRegistry()

	if creds.ElevenLabsKey != "" {
		r.RegisterTTS(tts.NewElevenLabs(creds.ElevenLabsKey))
		r.RegisterSTT(stt.NewElevenLabs(creds.ElevenLabsKey))
	}
	if creds.DeepgramKey != "" {
		r.RegisterTTS(tts.NewDeepgram(creds.DeepgramKey))
		r.RegisterSTT(stt.NewDeepgram(creds.DeepgramKey))
	}
	if creds.OpenAIKey != "" {
		r.RegisterTTS(tts.NewOpenAI(creds.OpenAIKey))
		r.RegisterSTT(stt.NewOpenAI(creds.OpenAIKey))
	}
	if creds.CartesiaKey != "" {
		r.RegisterTTS(tts.NewCartesia(creds.CartesiaKey))
	}
	if creds.AWSRegion != "" {
		polly, err := tts.NewPolly(ctx)
		if err != nil {
			return nil, err
		}
		r.RegisterTTS(polly)
	}
	if creds.AzureOpenAIKey != "" && creds.AzureOpenAIEndpoint != "" {
		r.RegisterSTT(stt.NewAzureOpenAI(creds.AzureOpenAIKey, creds.AzureOpenAIEndpoint))
	}

	logger.Info("vendor registry built",
		"tts_vendors", r.TTSVendors(),
		"stt_vendors", r.STTVendors(),
	)

	return r, nil
}
