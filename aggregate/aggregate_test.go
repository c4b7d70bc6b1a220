package aggregate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/speechbench/repository"
)

func newTestService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()
	store, err := repository.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, 7), store
}

// seedItems creates a started run with n pending items and returns them.
func seedItems(t *testing.T, store *repository.Store, vendor string, n int) []repository.RunItem {
	t.Helper()
	ctx := context.Background()
	run := &repository.Run{Mode: repository.ModeIsolated, Vendors: []string{vendor}}
	items := make([]repository.RunItem, n)
	for i := range items {
		items[i] = repository.RunItem{Vendor: vendor, TextInput: "sample"}
	}
	require.NoError(t, store.CreateRun(ctx, run, items))
	require.NoError(t, store.StartRun(ctx, run.ID))
	return items
}

func complete(t *testing.T, store *repository.Store, itemID string, sidecar map[string]any, values map[string]float64) {
	t.Helper()
	var ms []repository.Metric
	for name, v := range values {
		ms = append(ms, repository.Metric{Name: name, Value: v})
	}
	_, _, err := store.CompleteItem(context.Background(), repository.ItemCompletion{
		ItemID:  itemID,
		Status:  repository.StatusCompleted,
		Sidecar: sidecar,
		Metrics: ms,
	})
	require.NoError(t, err)
}

func TestPercentile(t *testing.T) {
	if _, ok := Percentile(nil, 0.5); ok {
		t.Fatal("empty sample should have no percentile")
	}

	if p, ok := Percentile([]float64{42}, 0.9); !ok || p != 42 {
		t.Fatalf("single sample percentile = %v, %v", p, ok)
	}

	sorted := []float64{1, 2, 3, 4, 5}
	p50, ok := Percentile(sorted, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, p50, 1e-9)

	p90, ok := Percentile(sorted, 0.9)
	require.True(t, ok)
	assert.InDelta(t, 4.6, p90, 1e-9)

	// p90 lies between the elements straddling index (n-1)*0.9 = 3.6
	assert.GreaterOrEqual(t, p90, sorted[3])
	assert.LessOrEqual(t, p90, sorted[4])
	assert.LessOrEqual(t, p50, p90)

	p0, ok := Percentile(sorted, 0)
	require.True(t, ok)
	assert.InDelta(t, 1.0, p0, 1e-9)

	p100, ok := Percentile(sorted, 1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p100, 1e-9)
}

func TestStats_EmptySystem(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalRuns)
	assert.Equal(t, 0, stats.TotalItems)
	assert.Equal(t, 100.0, stats.SuccessRate)
	assert.Equal(t, 95.0, stats.AvgAccuracy)
	assert.Equal(t, 0.0, stats.AvgWER)
	assert.Equal(t, 0.0, stats.AvgLatency)
}

func TestStats_WithData(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	items := seedItems(t, store, "elevenlabs", 1)
	complete(t, store, items[0].ID, nil, map[string]float64{
		"wer":         0.2,
		"tts_latency": 1.0,
	})

	// A second started run that never finishes
	seedItems(t, store, "deepgram", 1)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.CompletedRuns)
	assert.Equal(t, 2, stats.TotalItems)
	assert.InDelta(t, 0.2, stats.AvgWER, 1e-9)
	assert.InDelta(t, 80.0, stats.AvgAccuracy, 1e-9)
	assert.InDelta(t, 1.0, stats.AvgLatency, 1e-9)
	assert.InDelta(t, 50.0, stats.SuccessRate, 1e-9)
}

func TestLatencyPercentiles(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	items := seedItems(t, store, "elevenlabs", 3)
	for i, v := range []float64{1, 2, 3} {
		complete(t, store, items[i].ID, nil, map[string]float64{"tts_latency": v})
	}

	result, err := svc.LatencyPercentiles(ctx, "tts_latency", 7)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Count)
	require.NotNil(t, result.P50)
	require.NotNil(t, result.P90)
	assert.InDelta(t, 2.0, *result.P50, 1e-9)
	assert.InDelta(t, 2.8, *result.P90, 1e-9)
}

func TestLatencyPercentiles_NoSamples(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.LatencyPercentiles(context.Background(), "e2e_latency", 7)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Count)
	assert.Nil(t, result.P50)
	assert.Nil(t, result.P90)
}

func TestLatencyPercentiles_InvalidMetric(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.LatencyPercentiles(context.Background(), "wer", 7)
	var invalidErr *InvalidMetricError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestInsights(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// Two chained pairings: elevenlabs→deepgram twice, openai→deepgram once
	chained := seedItems(t, store, "elevenlabs→deepgram", 3)
	e2eSidecar := map[string]any{"service_type": "e2e", "tts_vendor": "elevenlabs", "stt_vendor": "deepgram"}
	complete(t, store, chained[0].ID, e2eSidecar, map[string]float64{"e2e_latency": 1.0, "wer": 0.1})
	complete(t, store, chained[1].ID, e2eSidecar, map[string]float64{"e2e_latency": 1.2, "wer": 0.3})
	complete(t, store, chained[2].ID,
		map[string]any{"service_type": "e2e", "tts_vendor": "openai", "stt_vendor": "deepgram"},
		map[string]float64{"e2e_latency": 0.9, "wer": 0.05})

	// One isolated STT, one isolated TTS, one item with nothing recorded
	sttItems := seedItems(t, store, "deepgram", 1)
	complete(t, store, sttItems[0].ID,
		map[string]any{"service_type": "stt", "stt_vendor": "deepgram"},
		map[string]float64{"stt_latency": 0.4, "wer": 0.2})

	ttsItems := seedItems(t, store, "cartesia", 1)
	complete(t, store, ttsItems[0].ID,
		map[string]any{"service_type": "tts", "tts_vendor": "cartesia"},
		map[string]float64{"tts_latency": 0.6})

	seedItems(t, store, "mystery", 1)

	insights, err := svc.Insights(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, insights.ServiceMix["E2E"])
	assert.Equal(t, 1, insights.ServiceMix["STT"])
	assert.Equal(t, 1, insights.ServiceMix["TTS"])
	assert.Equal(t, 1, insights.ServiceMix["UNKNOWN"])

	assert.Equal(t, 2, insights.VendorUsage.TTS["elevenlabs"])
	assert.Equal(t, 1, insights.VendorUsage.TTS["openai"])
	assert.Equal(t, 1, insights.VendorUsage.TTS["cartesia"])
	assert.Equal(t, 4, insights.VendorUsage.STT["deepgram"])

	require.Len(t, insights.TopVendorPairings, 2)
	first := insights.TopVendorPairings[0]
	assert.Equal(t, "elevenlabs", first.TTSVendor)
	assert.Equal(t, 2, first.Tests)
	assert.InDelta(t, 0.2, first.AvgWER, 1e-9)
	second := insights.TopVendorPairings[1]
	assert.Equal(t, "openai", second.TTSVendor)
	assert.Equal(t, 1, second.Tests)
}

func TestInsights_MetricNameFallback(t *testing.T) {
	svc, store := newTestService(t)

	// No sidecar labels: classification falls back to the metric names
	items := seedItems(t, store, "alpha→beta", 1)
	complete(t, store, items[0].ID, nil, map[string]float64{"e2e_latency": 1.0})

	sttItems := seedItems(t, store, "beta", 1)
	complete(t, store, sttItems[0].ID, nil, map[string]float64{"wer": 0.1})

	ttsItems := seedItems(t, store, "gamma", 1)
	complete(t, store, ttsItems[0].ID, nil, map[string]float64{"tts_latency": 0.5})

	insights, err := svc.Insights(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, insights.ServiceMix["E2E"])
	assert.Equal(t, 1, insights.ServiceMix["STT"])
	assert.Equal(t, 1, insights.ServiceMix["TTS"])
	assert.Equal(t, 1, insights.VendorUsage.STT["beta"])
	assert.Equal(t, 1, insights.VendorUsage.TTS["gamma"])
}

func TestTopPairings_SortAndLimit(t *testing.T) {
	accum := map[string]*pairingAccum{}
	for i := 0; i < 7; i++ {
		key := fmt.Sprintf("tts%d|stt%d", i, i)
		accum[key] = &pairingAccum{
			tts:    fmt.Sprintf("tts%d", i),
			stt:    fmt.Sprintf("stt%d", i),
			werSum: float64(i) * 0.1,
			count:  i + 1,
		}
	}

	top := topPairings(accum)
	require.Len(t, top, 5)
	assert.Equal(t, 7, top[0].Tests)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Tests, top[i].Tests)
	}
}

func TestTopPairings_TieBreakOnWER(t *testing.T) {
	accum := map[string]*pairingAccum{
		"a|x": {tts: "a", stt: "x", werSum: 0.4, count: 2},
		"b|y": {tts: "b", stt: "y", werSum: 0.2, count: 2},
	}

	top := topPairings(accum)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].TTSVendor)
	assert.Equal(t, "a", top[1].TTSVendor)
}
