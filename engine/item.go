package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/speechbench/artifact"
	"github.com/AltairaLabs/speechbench/audio"
	"github.com/AltairaLabs/speechbench/logger"
	"github.com/AltairaLabs/speechbench/metrics"
	prom "github.com/AltairaLabs/speechbench/metrics/prometheus"
	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/tts"
)

// itemOutcome accumulates everything a completed item persists in one
// transaction.
type itemOutcome struct {
	measurements []metrics.Measurement
	artifacts    []repository.ArtifactRecord
	audioPath    string
	transcript   string
	sidecar      map[string]any
}

func (o *itemOutcome) record(m metrics.Measurement) {
	o.measurements = append(o.measurements, m)
}

func (o *itemOutcome) attach(rec *artifact.Record) {
	o.artifacts = append(o.artifacts, repository.ArtifactRecord{
		Kind:        string(rec.Kind),
		FilePath:    rec.Path,
		ContentType: rec.ContentType,
		ByteLength:  rec.Bytes,
	})
}

// processItem drives one run item through its protocol and commits the
// terminal state. Vendor failures become a failed item; only repository
// errors propagate to the caller.
func (e *Engine) processItem(ctx context.Context, run *repository.Run, item repository.RunItem) error {
	ctx, span := e.tracer.Start(ctx, "item.process", trace.WithAttributes(
		attribute.String("item.id", item.ID),
		attribute.String("item.vendor", item.Vendor),
	))
	defer span.End()

	// Persistence must survive run cancellation: an in-flight item always
	// commits its terminal state.
	persistCtx := context.WithoutCancel(ctx)

	if err := ctx.Err(); err != nil {
		return e.completeItem(persistCtx, item, nil, err)
	}

	if err := e.store.SetItemStatus(persistCtx, item.ID, repository.StatusRunning); err != nil {
		return err
	}

	var outcome *itemOutcome
	var err error
	switch {
	case run.Mode == repository.ModeChained:
		outcome, err = e.runChained(ctx, run, item)
	case serviceOf(run) == "stt":
		outcome, err = e.runIsolatedSTT(ctx, run, item)
	default:
		outcome, err = e.runIsolatedTTS(ctx, run, item)
	}

	if err != nil {
		span.SetAttributes(attribute.String("item.status", string(repository.StatusFailed)))
		logger.WarnContext(ctx, "run item failed",
			"item_id", item.ID, "vendor", item.Vendor, "reason", failureReason(err))
	} else {
		span.SetAttributes(attribute.String("item.status", string(repository.StatusCompleted)))
	}
	return e.completeItem(persistCtx, item, outcome, err)
}

// completeItem writes the terminal item state. outcome may carry partial
// results (artifacts written before the failing call) even when err is set.
func (e *Engine) completeItem(ctx context.Context, item repository.RunItem, outcome *itemOutcome, itemErr error) error {
	completion := repository.ItemCompletion{
		ItemID: item.ID,
		Status: repository.StatusCompleted,
	}
	if outcome != nil {
		completion.AudioPath = outcome.audioPath
		completion.Transcript = outcome.transcript
		completion.MetricsSummary = metrics.Summary(outcome.measurements)
		completion.Sidecar = outcome.sidecar
		completion.Metrics = toMetricRows(item.ID, outcome.measurements)
		completion.Artifacts = outcome.artifacts
	}
	if itemErr != nil {
		completion.Status = repository.StatusFailed
		completion.FailureReason = failureReason(itemErr)
		// Failed items keep no partial metric rows; the summary and sidecar
		// stay for diagnosis.
		completion.Metrics = nil
	}

	status, finalized, err := e.store.CompleteItem(ctx, completion)
	if err != nil {
		return fmt.Errorf("complete item: %w", err)
	}
	prom.RecordItem(string(completion.Status))
	if finalized {
		logger.InfoContext(ctx, "run finalized", "run_id", item.RunID, "status", string(status))
	}
	return nil
}

// runIsolatedTTS synthesizes with the vendor under test, then scores the
// audio with the designated evaluator transcriber. Evaluator failure keeps
// the item completed with its synthesis metrics; the gap is noted in the
// sidecar.
func (e *Engine) runIsolatedTTS(ctx context.Context, run *repository.Run, item repository.RunItem) (*itemOutcome, error) {
	outcome := &itemOutcome{sidecar: map[string]any{
		"service_type": "tts",
		"vendor":       item.Vendor,
		"tts_vendor":   item.Vendor,
	}}

	res, err := e.synthesize(ctx, item.Vendor, item.TextInput, e.synthConfig(run, item.Vendor))
	if err != nil {
		return outcome, err
	}
	outcome.noteSynthesis(res)

	rec, err := e.artifacts.SaveAudio(item.ID, res.Audio, res.ContentType)
	if err != nil {
		return outcome, fmt.Errorf("save audio artifact: %w", err)
	}
	outcome.attach(rec)
	outcome.audioPath = rec.Path

	outcome.record(metrics.New(metrics.TTSLatency, res.Latency))
	if res.TTFB != nil && *res.TTFB > 0 {
		outcome.record(metrics.New(metrics.TTSTTFB, *res.TTFB))
	}
	duration := outcome.noteDuration(res.Audio, res.ContentType, res.VendorDuration)
	outcome.noteRTF(metrics.TTSRTF, res.Latency, duration)

	evaluator := e.opts.EvaluatorVendor
	outcome.sidecar["evaluator"] = evaluator
	eres, err := e.transcribe(ctx, evaluator, res.Audio, e.evaluationConfig(run, evaluator, res.ContentType))
	if err != nil {
		logger.WarnContext(ctx, "evaluator transcription failed",
			"item_id", item.ID, "evaluator", evaluator, "error", err)
		outcome.sidecar["evaluation_error"] = failureReason(err)
		return outcome, nil
	}

	if err := e.noteTranscript(item.ID, outcome, eres.Transcript); err != nil {
		return outcome, err
	}
	outcome.noteAccuracy(item.TextInput, eres)
	return outcome, nil
}

// runIsolatedSTT renders a standardized stimulus with the default
// synthesizer, then transcribes it with the vendor under test.
func (e *Engine) runIsolatedSTT(ctx context.Context, run *repository.Run, item repository.RunItem) (*itemOutcome, error) {
	outcome := &itemOutcome{sidecar: map[string]any{
		"service_type": "stt",
		"vendor":       item.Vendor,
		"stt_vendor":   item.Vendor,
	}}

	synth := e.opts.SynthVendor
	outcome.sidecar["stimulus_vendor"] = synth
	sres, err := e.synthesize(ctx, synth, item.TextInput, e.synthConfig(run, synth))
	if err != nil {
		return outcome, fmt.Errorf("stimulus synthesis: %w", err)
	}

	rec, err := e.artifacts.SaveAudio(item.ID, sres.Audio, sres.ContentType)
	if err != nil {
		return outcome, fmt.Errorf("save audio artifact: %w", err)
	}
	outcome.attach(rec)
	outcome.audioPath = rec.Path

	res, err := e.transcribe(ctx, item.Vendor, sres.Audio, e.transcriptionConfig(run, item.Vendor, sres.ContentType))
	if err != nil {
		return outcome, err
	}
	if m, ok := res.Metadata["model"]; ok {
		outcome.sidecar["stt_model"] = m
	}
	if lang, ok := res.Metadata["language"]; ok {
		outcome.sidecar["language"] = lang
	}

	outcome.record(metrics.New(metrics.STTLatency, res.Latency))
	duration := outcome.noteDuration(sres.Audio, sres.ContentType, pickDuration(sres.VendorDuration, res.VendorDuration))
	outcome.noteRTF(metrics.STTRTF, res.Latency, duration)

	if err := e.noteTranscript(item.ID, outcome, res.Transcript); err != nil {
		return outcome, err
	}
	outcome.noteAccuracy(item.TextInput, res)
	return outcome, nil
}

// runChained synthesizes with the chain's TTS vendor and transcribes those
// exact bytes with the chain's STT vendor. End-to-end latency is the sum of
// the two observed call latencies, independent of scheduling gaps.
func (e *Engine) runChained(ctx context.Context, run *repository.Run, item repository.RunItem) (*itemOutcome, error) {
	chain := chainOf(run)
	outcome := &itemOutcome{sidecar: map[string]any{
		"service_type": "e2e",
		"tts_vendor":   chain.TTSVendor,
		"stt_vendor":   chain.STTVendor,
	}}

	sres, err := e.synthesize(ctx, chain.TTSVendor, item.TextInput, e.synthConfig(run, chain.TTSVendor))
	if err != nil {
		return outcome, err
	}
	outcome.noteSynthesis(sres)

	rec, err := e.artifacts.SaveAudio(item.ID, sres.Audio, sres.ContentType)
	if err != nil {
		return outcome, fmt.Errorf("save audio artifact: %w", err)
	}
	outcome.attach(rec)
	outcome.audioPath = rec.Path

	tres, err := e.transcribe(ctx, chain.STTVendor, sres.Audio, e.transcriptionConfig(run, chain.STTVendor, sres.ContentType))
	if err != nil {
		return outcome, err
	}
	if m, ok := tres.Metadata["model"]; ok {
		outcome.sidecar["stt_model"] = m
	}
	if lang, ok := tres.Metadata["language"]; ok {
		outcome.sidecar["language"] = lang
	}

	outcome.record(metrics.New(metrics.TTSLatency, sres.Latency))
	if sres.TTFB != nil && *sres.TTFB > 0 {
		outcome.record(metrics.New(metrics.TTSTTFB, *sres.TTFB))
	}
	outcome.record(metrics.New(metrics.STTLatency, tres.Latency))
	outcome.record(metrics.New(metrics.E2ELatency, sres.Latency+tres.Latency))

	duration := outcome.noteDuration(sres.Audio, sres.ContentType, pickDuration(sres.VendorDuration, tres.VendorDuration))
	outcome.noteRTF(metrics.TTSRTF, sres.Latency, duration)
	outcome.noteRTF(metrics.STTRTF, tres.Latency, duration)

	if err := e.noteTranscript(item.ID, outcome, tres.Transcript); err != nil {
		return outcome, err
	}
	outcome.noteAccuracy(item.TextInput, tres)
	return outcome, nil
}

// noteSynthesis copies synthesis response details into the sidecar.
func (o *itemOutcome) noteSynthesis(res *tts.Result) {
	if m, ok := res.Metadata["model"]; ok {
		o.sidecar["tts_model"] = m
	}
	if v, ok := res.Metadata["voice_id"]; ok {
		o.sidecar["voice_id"] = v
	}
}

// noteDuration probes the audio duration and records it. A size-based
// estimate is flagged in the sidecar; RTF consumers must not treat it as a
// measurement.
func (o *itemOutcome) noteDuration(data []byte, contentType string, vendorDuration float64) float64 {
	dur, ok := audio.Probe(data, contentType, vendorDuration)
	if !ok {
		return 0
	}
	o.record(metrics.New(metrics.AudioDuration, dur.Seconds))
	if dur.Estimated() {
		o.sidecar["duration_estimated"] = true
	}
	return dur.Seconds
}

// noteRTF records a real-time factor when one is computable, flagging
// anomalous ratios in the sidecar.
func (o *itemOutcome) noteRTF(name string, latency, duration float64) {
	rtf, ok := metrics.RTF(latency, duration)
	if !ok {
		return
	}
	o.record(metrics.New(name, rtf))
	if metrics.RTFAnomalous(rtf) {
		o.sidecar["rtf_anomalous"] = true
	}
}

// noteAccuracy scores the transcript against the reference input.
func (o *itemOutcome) noteAccuracy(reference string, res *stt.Result) {
	wer := metrics.WordErrorRate(reference, res.Transcript)
	o.record(metrics.NewWER(wer))
	o.record(metrics.New(metrics.Accuracy, metrics.AccuracyFrom(wer)))
	o.record(metrics.New(metrics.Confidence, metrics.NormalizeConfidence(res.Confidence)))
}

// noteTranscript persists the transcript artifact and remembers the text.
func (e *Engine) noteTranscript(itemID string, outcome *itemOutcome, transcript string) error {
	rec, err := e.artifacts.SaveTranscript(itemID, transcript)
	if err != nil {
		return fmt.Errorf("save transcript artifact: %w", err)
	}
	outcome.attach(rec)
	outcome.transcript = transcript
	return nil
}

func toMetricRows(itemID string, ms []metrics.Measurement) []repository.Metric {
	rows := make([]repository.Metric, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, repository.Metric{
			RunItemID: itemID,
			Name:      m.Name,
			Value:     m.Value,
			Unit:      m.Unit,
			Threshold: m.Threshold,
			PassFail:  m.PassFail,
		})
	}
	return rows
}

// pickDuration prefers the synthesis-side vendor duration, falling back to
// the transcription side.
func pickDuration(synthDuration, sttDuration float64) float64 {
	if synthDuration > 0 {
		return synthDuration
	}
	return sttDuration
}
