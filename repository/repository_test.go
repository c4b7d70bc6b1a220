package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRun(t *testing.T, store *Store, itemCount int) (*Run, []RunItem) {
	t.Helper()
	run := &Run{
		Mode:    ModeIsolated,
		Vendors: []string{"elevenlabs", "deepgram"},
		Config:  map[string]any{"service": "tts", "language": "en-US"},
	}
	items := make([]RunItem, itemCount)
	for i := range items {
		items[i] = RunItem{
			Vendor:    "elevenlabs",
			TextInput: "the quick brown fox",
			Sidecar:   map[string]any{"service_type": "tts"},
		}
	}
	require.NoError(t, store.CreateRun(context.Background(), run, items))
	return run, items
}

func TestStore_HealthAndClose(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Health(context.Background()))
}

func TestCreateRun_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, items := seedRun(t, store, 2)

	require.NotEmpty(t, run.ID)
	require.Len(t, items, 2)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeIsolated, got.Mode)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, []string{"elevenlabs", "deepgram"}, got.Vendors)
	assert.Equal(t, "tts", got.Config["service"])
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)

	gotItems, err := store.ListItemsByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gotItems, 2)
	assert.Equal(t, StatusPending, gotItems[0].Status)
	assert.Equal(t, "the quick brown fox", gotItems[0].TextInput)
	assert.Equal(t, "tts", gotItems[0].Sidecar["service_type"])
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run, _ := seedRun(t, store, 1)

	require.NoError(t, store.StartRun(ctx, run.ID))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestCompleteItem_FinalizesRunWhenLast(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run, items := seedRun(t, store, 2)
	require.NoError(t, store.StartRun(ctx, run.ID))

	status, finalized, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID:         items[0].ID,
		Status:         StatusCompleted,
		AudioPath:      "audio_" + items[0].ID + ".mp3",
		Transcript:     "the quick brown fox",
		MetricsSummary: "tts_latency:0.42|wer:0",
		Metrics: []Metric{
			{Name: "tts_latency", Value: 0.42, Unit: "s"},
			{Name: "wer", Value: 0, Unit: "ratio"},
		},
		Artifacts: []ArtifactRecord{
			{Kind: "audio", FilePath: "audio_" + items[0].ID + ".mp3", ContentType: "audio/mpeg", ByteLength: 1024},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
	assert.False(t, finalized)

	status, finalized, err = store.CompleteItem(ctx, ItemCompletion{
		ItemID: items[1].ID,
		Status: StatusCompleted,
	})
	require.NoError(t, err)
	assert.True(t, finalized)
	assert.Equal(t, StatusCompleted, status)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)

	item, err := store.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, item.Status)
	assert.Equal(t, "tts_latency:0.42|wer:0", item.MetricsSummary)
	assert.Equal(t, "audio_"+items[0].ID+".mp3", item.AudioPath)

	metrics, err := store.MetricsForItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	artifacts, err := store.ArtifactsForItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "audio", artifacts[0].Kind)
	assert.Equal(t, 1024, artifacts[0].ByteLength)
}

func TestCompleteItem_StatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all completed", []Status{StatusCompleted, StatusCompleted}, StatusCompleted},
		{"all failed", []Status{StatusFailed, StatusFailed}, StatusFailed},
		{"mixed", []Status{StatusCompleted, StatusFailed}, StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()
			run, items := seedRun(t, store, len(tt.statuses))
			require.NoError(t, store.StartRun(ctx, run.ID))

			var status Status
			var finalized bool
			for i, st := range tt.statuses {
				var err error
				status, finalized, err = store.CompleteItem(ctx, ItemCompletion{
					ItemID: items[i].ID,
					Status: st,
				})
				require.NoError(t, err)
			}

			assert.True(t, finalized)
			assert.Equal(t, tt.want, status)

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestCompleteItem_DuplicateMetricIsIntegrityError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, items := seedRun(t, store, 1)

	_, _, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID: items[0].ID,
		Status: StatusCompleted,
		Metrics: []Metric{
			{Name: "wer", Value: 0.1, Unit: "ratio"},
			{Name: "wer", Value: 0.2, Unit: "ratio"},
		},
	})
	require.Error(t, err)

	var integrityErr *IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "unique", integrityErr.Constraint)

	// The transaction rolled back: no metric rows exist
	metrics, err := store.MetricsForItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestCompleteItem_UnknownItem(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.CompleteItem(context.Background(), ItemCompletion{
		ItemID: "missing",
		Status: StatusCompleted,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteItem_FailureReason(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, items := seedRun(t, store, 1)

	_, _, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID:        items[0].ID,
		Status:        StatusFailed,
		FailureReason: "timeout",
	})
	require.NoError(t, err)

	item, err := store.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, item.Status)
	assert.Equal(t, "timeout", item.FailureReason)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := &Run{Mode: ModeIsolated, Vendors: []string{"a"}, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.CreateRun(ctx, old, nil))
	recent := &Run{Mode: ModeChained, Vendors: []string{"a", "b"}}
	require.NoError(t, store.CreateRun(ctx, recent, nil))

	runs, err := store.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, recent.ID, runs[0].ID)
	assert.Equal(t, old.ID, runs[1].ID)

	limited, err := store.ListRuns(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, recent.ID, limited[0].ID)
}

func TestPurgeRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run, items := seedRun(t, store, 1)

	_, _, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID:  items[0].ID,
		Status:  StatusCompleted,
		Metrics: []Metric{{Name: "wer", Value: 0}},
		Artifacts: []ArtifactRecord{
			{Kind: "audio", FilePath: "audio_x.mp3"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, store.PurgeRun(ctx, run.ID))

	_, err = store.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetItem(ctx, items[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedScript_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	script := Script{ID: "banking_script", Name: "Banking Script", Tags: "banking"}
	items := []ScriptItem{
		{ID: "item_1", Text: "Welcome to our banking services."},
		{ID: "item_2", Text: "Your account balance is low."},
	}

	require.NoError(t, store.SeedScript(ctx, script, items))
	require.NoError(t, store.SeedScript(ctx, script, items))

	scripts, err := store.ListScripts(ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "Banking Script", scripts[0].Name)
	assert.Equal(t, 2, scripts[0].ItemCount)
}

func TestScriptItems_InsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedScript(ctx,
		Script{ID: "s1", Name: "First"},
		[]ScriptItem{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}}))

	items, err := store.ScriptItems(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Text)
	assert.Equal(t, "two", items[1].Text)
	assert.Equal(t, "s1", items[0].ScriptID)
}

func TestScriptItems_UnknownScript(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ScriptItems(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetricValuesInWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, items := seedRun(t, store, 3)

	for i, v := range []float64{0.9, 0.3, 0.6} {
		_, _, err := store.CompleteItem(ctx, ItemCompletion{
			ItemID:  items[i].ID,
			Status:  StatusCompleted,
			Metrics: []Metric{{Name: "tts_latency", Value: v, Unit: "s"}},
		})
		require.NoError(t, err)
	}

	now := time.Now()
	values, err := store.MetricValuesInWindow(ctx, "tts_latency", now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.6, 0.9}, values)

	// Window excluding the items
	values, err = store.MetricValuesInWindow(ctx, "tts_latency", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRunCountsSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, items := seedRun(t, store, 1)
	require.NoError(t, store.StartRun(ctx, run.ID))
	_, _, err := store.CompleteItem(ctx, ItemCompletion{ItemID: items[0].ID, Status: StatusCompleted})
	require.NoError(t, err)

	run2, _ := seedRun(t, store, 1)
	require.NoError(t, store.StartRun(ctx, run2.ID))

	total, completed, err := store.RunCountsSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, completed)
}

func TestAvgLatencySince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, items := seedRun(t, store, 2)

	_, _, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID:  items[0].ID,
		Status:  StatusCompleted,
		Metrics: []Metric{{Name: "tts_latency", Value: 1.0, Unit: "s"}},
	})
	require.NoError(t, err)
	_, _, err = store.CompleteItem(ctx, ItemCompletion{
		ItemID:  items[1].ID,
		Status:  StatusCompleted,
		Metrics: []Metric{{Name: "e2e_latency", Value: 3.0, Unit: "s"}},
	})
	require.NoError(t, err)

	avg, ok, err := store.AvgLatencySince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, avg, 1e-9)
}

func TestAvgLatencySince_NoSamples(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.AvgLatencySince(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsightRowsSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{Mode: ModeChained, Vendors: []string{"elevenlabs", "deepgram"}}
	items := []RunItem{{
		Vendor:    "elevenlabs→deepgram",
		TextInput: "hello world",
		Sidecar:   map[string]any{"tts_vendor": "elevenlabs", "stt_vendor": "deepgram"},
	}}
	require.NoError(t, store.CreateRun(ctx, run, items))

	_, _, err := store.CompleteItem(ctx, ItemCompletion{
		ItemID:  items[0].ID,
		Status:  StatusCompleted,
		Sidecar: items[0].Sidecar,
		Metrics: []Metric{
			{Name: "e2e_latency", Value: 1.5, Unit: "s"},
			{Name: "wer", Value: 0.25, Unit: "ratio"},
		},
	})
	require.NoError(t, err)

	rows, err := store.InsightRowsSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "elevenlabs→deepgram", row.Vendor)
	assert.Equal(t, "elevenlabs", row.Sidecar["tts_vendor"])
	assert.InDelta(t, 1.5, row.Metrics["e2e_latency"], 1e-9)
	assert.InDelta(t, 0.25, row.Metrics["wer"], 1e-9)
}

func TestParseMetricConcat(t *testing.T) {
	metrics := parseMetricConcat("wer:0.1|tts_latency:0.5|bad|also:bad:0.2")
	assert.InDelta(t, 0.1, metrics["wer"], 1e-9)
	assert.InDelta(t, 0.5, metrics["tts_latency"], 1e-9)
	assert.NotContains(t, metrics, "bad")

	assert.Empty(t, parseMetricConcat(""))
}
