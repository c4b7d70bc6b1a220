// Package stt provides speech-to-text vendor adapters for benchmark runs.
//
// The package defines a common Service interface that abstracts STT providers,
// so a run can transcribe the same audio across vendors and compare the
// measured results.
//
// # Architecture
//
// The package provides:
//   - Service interface for STT providers
//   - Result carrying the transcript, confidence, and measured latency
//   - TranscriptionConfig for audio format configuration
//   - Provider implementations (Deepgram, ElevenLabs, OpenAI Whisper,
//     Azure OpenAI)
//
// # Timing contract
//
// Latency is measured inside each adapter from just before the request to
// after the response body arrives. The audio upload rides inside the request,
// so input transfer time is included, unlike synthesis where input is a small
// text payload.
//
// # Usage
//
//	service := stt.NewDeepgram(os.Getenv("DEEPGRAM_API_KEY"))
//	res, err := service.Transcribe(ctx, audioData, stt.TranscriptionConfig{
//	    Format:   "wav",
//	    Language: "en",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%q (%.3fs)\n", res.Transcript, res.Latency)
package stt
