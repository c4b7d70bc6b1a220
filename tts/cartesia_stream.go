// WebSocket streaming synthesis for Cartesia. Streaming is what makes the
// time-to-first-byte measurement possible: the stopwatch runs across the
// whole exchange and the first audio chunk marks TTFB.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/speechbench/audio"
	"github.com/AltairaLabs/speechbench/timing"
)

// errWSDial marks a failure to establish the WebSocket, before any request
// was sent. These fall back to the REST path.
var errWSDial = errors.New("websocket connection failed")

func isDialFailure(err error) bool {
	return errors.Is(err, errWSDial)
}

// cartesiaWSResponse represents a WebSocket response from Cartesia.
type cartesiaWSResponse struct {
	StatusCode int    `json:"status_code"`
	Done       bool   `json:"done"`
	Type       string `json:"type"`
	Data       string `json:"data"` // Base64-encoded audio
	Error      string `json:"error,omitempty"`
}

// synthesizeStream performs one synthesis over the streaming WebSocket and
// buffers the chunks into a complete result. Raw PCM chunks are wrapped in a
// WAV header so downstream consumers get a self-describing container.
func (s *CartesiaService) synthesizeStream(
	ctx context.Context, text, voice, model, language string,
) (*Result, error) {
	wsURL := fmt.Sprintf("%s?api_key=%s&cartesia_version=%s", s.wsURL, s.apiKey, cartesiaAPIVersion)

	sw := timing.Start()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, NewSynthesisError("cartesia", "", errWSDial.Error(), errWSDial, true)
	}
	defer conn.Close()

	reqBody := cartesiaRequest{
		ModelID:    model,
		Transcript: text,
		Voice: cartesiaVoiceConfig{
			Mode: "id",
			ID:   voice,
		},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: cartesiaStreamSampleRate,
		},
		Language:  language,
		ContextID: fmt.Sprintf("ctx_%d", time.Now().UnixNano()),
	}

	if err := conn.WriteJSON(reqBody); err != nil {
		return nil, NewSynthesisError("cartesia", "", "failed to send request", err, true)
	}

	var pcm []byte
	var ttfb *float64

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var wsResp cartesiaWSResponse
		if err := conn.ReadJSON(&wsResp); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return nil, NewSynthesisError("cartesia", "", "stream read failed", err, true)
		}

		if wsResp.Error != "" {
			return nil, NewSynthesisError("cartesia", "", wsResp.Error, nil, false)
		}

		if wsResp.Type == "chunk" && wsResp.Data != "" {
			chunk, err := base64.StdEncoding.DecodeString(wsResp.Data)
			if err != nil {
				return nil, NewSynthesisError("cartesia", "", "invalid chunk encoding", err, false)
			}
			if ttfb == nil {
				t := sw.Elapsed()
				ttfb = &t
			}
			pcm = append(pcm, chunk...)
		}

		if wsResp.Done {
			break
		}
	}

	latency := sw.Elapsed()

	if len(pcm) == 0 {
		return nil, NewSynthesisError("cartesia", "", "stream produced no audio", nil, true)
	}

	return &Result{
		Audio:       audio.WrapPCMAsWAV(pcm, cartesiaStreamSampleRate, 1, 16),
		ContentType: "audio/wav",
		Latency:     latency,
		TTFB:        ttfb,
		Metadata: map[string]string{
			"model":     model,
			"voice":     voice,
			"transport": "websocket",
		},
	}, nil
}
