// Package engine executes benchmark runs: it validates run requests, expands
// them into run items, and drives each item through its vendor calls, metric
// computation and persistence with bounded per-run concurrency.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/speechbench/artifact"
	"github.com/AltairaLabs/speechbench/logger"
	prom "github.com/AltairaLabs/speechbench/metrics/prometheus"
	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/timing"
	"github.com/AltairaLabs/speechbench/vendors"
)

const (
	// DefaultConcurrency bounds how many items of one run execute at once.
	DefaultConcurrency = 4

	// DefaultSynthVendor renders the stimulus for isolated STT items.
	DefaultSynthVendor = "elevenlabs"

	// DefaultEvaluatorVendor scores isolated TTS output.
	DefaultEvaluatorVendor = "deepgram"

	// DefaultSynthesizeTimeout and DefaultTranscribeTimeout bound each
	// vendor call. Transcription gets longer because the upload is part
	// of the call.
	DefaultSynthesizeTimeout = 60 * time.Second
	DefaultTranscribeTimeout = 120 * time.Second

	// DefaultMaxRetries bounds re-attempts of retryable vendor errors.
	DefaultMaxRetries = 2
)

// Options tunes engine execution. Zero values take the defaults above; a
// negative MaxRetries disables retries entirely.
type Options struct {
	Concurrency       int
	SynthVendor       string
	EvaluatorVendor   string
	SynthesizeTimeout time.Duration
	TranscribeTimeout time.Duration
	MaxRetries        int
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.SynthVendor == "" {
		o.SynthVendor = DefaultSynthVendor
	}
	if o.EvaluatorVendor == "" {
		o.EvaluatorVendor = DefaultEvaluatorVendor
	}
	if o.SynthesizeTimeout <= 0 {
		o.SynthesizeTimeout = DefaultSynthesizeTimeout
	}
	if o.TranscribeTimeout <= 0 {
		o.TranscribeTimeout = DefaultTranscribeTimeout
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	return o
}

// Engine coordinates run execution against the vendor registry, the
// repository and the artifact store.
type Engine struct {
	registry  *vendors.Registry
	store     *repository.Store
	artifacts *artifact.Store
	opts      Options
	tracer    trace.Tracer
}

// New builds an engine. The registry, store and artifact store are shared
// process singletons owned by the caller.
func New(registry *vendors.Registry, store *repository.Store, artifacts *artifact.Store, opts Options) *Engine {
	return &Engine{
		registry:  registry,
		store:     store,
		artifacts: artifacts,
		opts:      opts.withDefaults(),
		tracer:    otel.Tracer("speechbench/engine"),
	}
}

// CreateRun validates the request, persists the run with its expanded items
// and returns the run with items filled in. Execution does not start here;
// call Execute (or Launch) with the returned run ID.
func (e *Engine) CreateRun(ctx context.Context, req RunRequest) (*repository.Run, []repository.RunItem, error) {
	if err := req.validate(e.registry); err != nil {
		return nil, nil, err
	}

	run := &repository.Run{
		Mode:    req.Mode,
		Vendors: req.runVendors(),
		Config:  req.configMap(),
	}
	items := req.expand()

	if err := e.store.CreateRun(ctx, run, items); err != nil {
		return nil, nil, fmt.Errorf("persist run: %w", err)
	}

	logger.InfoContext(ctx, "run created",
		"run_id", run.ID, "mode", run.Mode, "items", len(items))
	return run, items, nil
}

// Launch starts Execute in the background. Errors are logged; the run row
// carries the outcome.
func (e *Engine) Launch(runID string) {
	go func() {
		if err := e.Execute(context.Background(), runID); err != nil {
			logger.Error("run execution failed", "run_id", runID, "error", err)
		}
	}()
}

// Execute transitions the run to running and processes its items with
// bounded concurrency. Per-item failures never abort siblings; the terminal
// run status is aggregated by the repository when the last item commits.
// Cancelling ctx is advisory: in-flight items finish, queued items are not
// started and fail with reason "canceled".
func (e *Engine) Execute(ctx context.Context, runID string) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	items, err := e.store.ListItemsByRun(ctx, runID)
	if err != nil {
		return err
	}

	ctx, span := e.tracer.Start(ctx, "run.execute", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.mode", run.Mode),
		attribute.Int("run.items", len(items)),
	))
	defer span.End()

	if err := e.store.StartRun(ctx, runID); err != nil {
		return err
	}

	prom.RecordRunStart()
	sw := timing.Start()
	logger.InfoContext(ctx, "run started", "run_id", runID, "mode", run.Mode, "items", len(items))

	g := &errgroup.Group{}
	g.SetLimit(e.opts.Concurrency)

	for i := range items {
		item := items[i]
		g.Go(func() error {
			if err := e.processItem(ctx, run, item); err != nil {
				// Repository failures are the only errors that escape an
				// item; vendor failures become a failed item status.
				return fmt.Errorf("item %s: %w", item.ID, err)
			}
			return nil
		})
	}

	err = g.Wait()
	finalStatus := e.finalStatus(ctx, runID)
	prom.RecordRunEnd(string(finalStatus), sw.Elapsed())
	span.SetAttributes(attribute.String("run.status", string(finalStatus)))

	if err != nil {
		logger.ErrorContext(ctx, "run finished with persistence errors",
			"run_id", runID, "status", string(finalStatus), "error", err)
		return err
	}

	logger.InfoContext(ctx, "run finished",
		"run_id", runID, "status", string(finalStatus), "elapsed_s", sw.Elapsed())
	return nil
}

// finalStatus reads back the aggregate status after all workers return.
func (e *Engine) finalStatus(ctx context.Context, runID string) repository.Status {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return repository.StatusFailed
	}
	return run.Status
}
