package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"

	"github.com/AltairaLabs/speechbench/logger"
	prom "github.com/AltairaLabs/speechbench/metrics/prometheus"
	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/timing"
	"github.com/AltairaLabs/speechbench/tts"
)

// TimeoutError marks a vendor call that exceeded its per-call timeout. The
// item fails with reason "timeout"; timeouts are never retried.
type TimeoutError struct {
	Vendor     string
	Capability string
	Cause      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s call timed out", e.Vendor, e.Capability)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// synthesize calls a TTS vendor with the per-call timeout, rate limiting and
// bounded retries of retryable errors. The returned result carries the
// latency of the final successful attempt only.
func (e *Engine) synthesize(ctx context.Context, vendor, text string, cfg tts.SynthesisConfig) (*tts.Result, error) {
	svc, err := e.registry.TTS(vendor)
	if err != nil {
		return nil, err
	}

	operation := func() (*tts.Result, error) {
		if err := e.registry.Wait(ctx, vendor); err != nil {
			return nil, backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.SynthesizeTimeout)
		defer cancel()

		sw := timing.Start()
		res, err := svc.Synthesize(callCtx, text, cfg)
		if err != nil {
			prom.RecordVendorRequest(vendor, "tts", "error", sw.Elapsed())
			return nil, e.classify(ctx, err, callCtx, vendor, "tts")
		}
		prom.RecordVendorRequest(vendor, "tts", "success", sw.Elapsed())
		return res, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(e.opts.MaxRetries+1)),
	)
}

// transcribe is the STT counterpart of synthesize. The longer default
// timeout accounts for the audio upload being part of the call.
func (e *Engine) transcribe(ctx context.Context, vendor string, audio []byte, cfg stt.TranscriptionConfig) (*stt.Result, error) {
	svc, err := e.registry.STT(vendor)
	if err != nil {
		return nil, err
	}

	operation := func() (*stt.Result, error) {
		if err := e.registry.Wait(ctx, vendor); err != nil {
			return nil, backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.TranscribeTimeout)
		defer cancel()

		sw := timing.Start()
		res, err := svc.Transcribe(callCtx, audio, cfg)
		if err != nil {
			prom.RecordVendorRequest(vendor, "stt", "error", sw.Elapsed())
			return nil, e.classify(ctx, err, callCtx, vendor, "stt")
		}
		prom.RecordVendorRequest(vendor, "stt", "success", sw.Elapsed())
		return res, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(e.opts.MaxRetries+1)),
	)
}

// classify decides whether a failed vendor call is retried. Timeouts and
// non-retryable adapter errors stop immediately; retryable ones are returned
// as-is so the backoff loop re-attempts them.
func (e *Engine) classify(ctx context.Context, err error, callCtx context.Context, vendor, capability string) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(&TimeoutError{Vendor: vendor, Capability: capability, Cause: err})
	}
	if !retryableError(err) {
		return backoff.Permanent(err)
	}
	prom.RecordVendorRetry(vendor, capability)
	logger.WarnContext(ctx, "retrying vendor call",
		"vendor", vendor, "capability", capability, "error", err)
	return err
}

// retryableError follows the adapter error taxonomy: only errors the vendor
// adapters explicitly mark retryable are retried.
func retryableError(err error) bool {
	var synthErr *tts.SynthesisError
	if errors.As(err, &synthErr) {
		return synthErr.Retryable
	}
	var transErr *stt.TranscriptionError
	if errors.As(err, &transErr) {
		return transErr.Retryable
	}
	return false
}

// failureReason renders the persisted failure reason for an item.
func failureReason(err error) string {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return err.Error()
}
