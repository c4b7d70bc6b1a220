// Package tts provides text-to-speech vendor adapters for benchmark runs.
//
// The package defines a common Service interface that abstracts TTS providers,
// so a run can synthesize the same script across vendors and compare the
// measured results.
//
// # Architecture
//
// The package provides:
//   - Service interface for TTS providers
//   - Result carrying audio bytes plus latency / TTFB measurements
//   - SynthesisConfig for voice/format configuration
//   - Provider implementations (ElevenLabs, Deepgram, OpenAI, Cartesia, Polly)
//
// # Timing contract
//
// Every adapter measures latency itself, from just before the network request
// to after the last audio byte arrives. Request encoding and anything the
// caller does with the result (artifact writes, metric persistence) are
// excluded. TTFB is reported only by streaming transports (Cartesia's
// WebSocket); buffered HTTP adapters leave it nil.
//
// # Usage
//
//	service := tts.NewElevenLabs(os.Getenv("ELEVENLABS_API_KEY"))
//	res, err := service.Synthesize(ctx, "Hello world", tts.DefaultSynthesisConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes in %.3fs\n", len(res.Audio), res.Latency)
package tts
