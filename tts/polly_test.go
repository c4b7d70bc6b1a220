package tts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
)

type stubPollyClient struct {
	input *polly.SynthesizeSpeechInput
	out   *polly.SynthesizeSpeechOutput
	err   error
}

func (s *stubPollyClient) SynthesizeSpeech(
	_ context.Context, params *polly.SynthesizeSpeechInput, _ ...func(*polly.Options),
) (*polly.SynthesizeSpeechOutput, error) {
	s.input = params
	return s.out, s.err
}

func TestPollyService_Name(t *testing.T) {
	service, err := NewPolly(context.Background(), WithPollyClient(&stubPollyClient{}))
	if err != nil {
		t.Fatalf("NewPolly() error = %v", err)
	}
	if service.Name() != "aws" {
		t.Errorf("Name() = %v, want aws", service.Name())
	}
}

func TestPollyService_Synthesize_EmptyText(t *testing.T) {
	service, _ := NewPolly(context.Background(), WithPollyClient(&stubPollyClient{}))
	_, err := service.Synthesize(context.Background(), "", SynthesisConfig{})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("Synthesize() error = %v, want ErrEmptyText", err)
	}
}

func TestPollyService_Synthesize_Success(t *testing.T) {
	stub := &stubPollyClient{
		out: &polly.SynthesizeSpeechOutput{
			AudioStream:       io.NopCloser(strings.NewReader("polly audio")),
			ContentType:       aws.String("audio/mpeg"),
			RequestCharacters: 11,
		},
	}
	service, _ := NewPolly(context.Background(), WithPollyClient(stub))

	res, err := service.Synthesize(context.Background(), "Hello world", SynthesisConfig{})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if string(res.Audio) != "polly audio" {
		t.Errorf("Audio = %v, want polly audio", string(res.Audio))
	}
	if res.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", res.Latency)
	}
	if res.Metadata["request_characters"] != "11" {
		t.Errorf("request_characters = %v, want 11", res.Metadata["request_characters"])
	}

	if got := string(stub.input.VoiceId); got != pollyDefaultVoice {
		t.Errorf("VoiceId = %v, want %v", got, pollyDefaultVoice)
	}
	if stub.input.OutputFormat != pollytypes.OutputFormatMp3 {
		t.Errorf("OutputFormat = %v, want mp3", stub.input.OutputFormat)
	}
	if stub.input.Engine != pollytypes.EngineNeural {
		t.Errorf("Engine = %v, want neural", stub.input.Engine)
	}
}

func TestPollyService_Synthesize_Throttled(t *testing.T) {
	stub := &stubPollyClient{err: errors.New("ThrottlingException: rate exceeded")}
	service, _ := NewPolly(context.Background(), WithPollyClient(stub))

	_, err := service.Synthesize(context.Background(), "Hello", SynthesisConfig{})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error type = %T, want *SynthesisError", err)
	}
	if !synthErr.Retryable {
		t.Error("throttling error not marked retryable")
	}
}

func TestPollyService_MapFormat(t *testing.T) {
	service, _ := NewPolly(context.Background(), WithPollyClient(&stubPollyClient{}))

	if service.mapFormat("ogg") != pollytypes.OutputFormatOggVorbis {
		t.Error("mapFormat(ogg) != ogg_vorbis")
	}
	if service.mapFormat("pcm") != pollytypes.OutputFormatPcm {
		t.Error("mapFormat(pcm) != pcm")
	}
	if service.mapFormat("") != pollytypes.OutputFormatMp3 {
		t.Error("mapFormat() default != mp3")
	}
}
