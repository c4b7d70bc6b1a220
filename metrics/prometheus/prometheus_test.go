package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordVendorRequest(t *testing.T) {
	vendorRequestDuration.Reset()
	vendorRequestsTotal.Reset()

	RecordVendorRequest("elevenlabs", "tts", "success", 1.5)
	RecordVendorRequest("elevenlabs", "tts", "success", 0.8)
	RecordVendorRequest("deepgram", "stt", "error", 0.5)

	successCount := testutil.ToFloat64(vendorRequestsTotal.WithLabelValues("elevenlabs", "tts", "success"))
	errorCount := testutil.ToFloat64(vendorRequestsTotal.WithLabelValues("deepgram", "stt", "error"))

	if successCount != 2 {
		t.Errorf("Expected 2 success requests, got %f", successCount)
	}
	if errorCount != 1 {
		t.Errorf("Expected 1 error request, got %f", errorCount)
	}

	if count := testutil.CollectAndCount(vendorRequestDuration); count == 0 {
		t.Error("Expected non-zero histogram observations")
	}
}

func TestRecordVendorRetry(t *testing.T) {
	vendorRetriesTotal.Reset()

	RecordVendorRetry("openai", "stt")
	RecordVendorRetry("openai", "stt")

	retries := testutil.ToFloat64(vendorRetriesTotal.WithLabelValues("openai", "stt"))
	if retries != 2 {
		t.Errorf("Expected 2 retries, got %f", retries)
	}
}

func TestRecordRunStartEnd(t *testing.T) {
	runsActive.Set(0)
	runDuration.Reset()

	RecordRunStart()
	RecordRunStart()
	active := testutil.ToFloat64(runsActive)
	if active != 2 {
		t.Errorf("Expected 2 active runs, got %f", active)
	}

	RecordRunEnd("completed", 12.0)
	RecordRunEnd("partial", 30.0)
	active = testutil.ToFloat64(runsActive)
	if active != 0 {
		t.Errorf("Expected 0 active runs after end, got %f", active)
	}
}

func TestRecordItem(t *testing.T) {
	itemsTotal.Reset()

	RecordItem("completed")
	RecordItem("completed")
	RecordItem("failed")

	completed := testutil.ToFloat64(itemsTotal.WithLabelValues("completed"))
	failed := testutil.ToFloat64(itemsTotal.WithLabelValues("failed"))

	if completed != 2 {
		t.Errorf("Expected 2 completed items, got %f", completed)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed item, got %f", failed)
	}
}

func TestExporterGather(t *testing.T) {
	exporter := NewExporter(":9090")

	vendorRequestsTotal.Reset()
	RecordVendorRequest("cartesia", "tts", "success", 0.3)

	families, err := exporter.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var found *dto.MetricFamily
	for _, fam := range families {
		if fam.GetName() == "speechbench_vendor_requests_total" {
			found = fam
			break
		}
	}
	if found == nil {
		t.Fatal("speechbench_vendor_requests_total not gathered")
	}
	if found.GetType() != dto.MetricType_COUNTER {
		t.Errorf("metric type = %v, want counter", found.GetType())
	}
}

func TestNewExporter(t *testing.T) {
	exporter := NewExporter(":9091")
	if exporter == nil {
		t.Fatal("Expected non-nil exporter")
	}
	if exporter.Registry() == nil {
		t.Error("Expected non-nil registry")
	}
}

func TestNewExporterWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporterWithRegistry(":9092", reg)

	if exporter.Registry() != reg {
		t.Error("Expected custom registry to be used")
	}
}

func TestExporterHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "Test counter",
	})
	reg.MustRegister(counter)
	counter.Inc()

	exporter := NewExporterWithRegistry(":9093", reg)
	handler := exporter.Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test_counter") {
		t.Error("Expected response to contain test_counter metric")
	}
}

func TestExporterRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporterWithRegistry(":9094", reg)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "custom_counter",
		Help: "Custom counter",
	})

	err := exporter.Register(counter)
	if err != nil {
		t.Errorf("Expected no error registering counter, got %v", err)
	}

	// Registering again should fail
	err = exporter.Register(counter)
	if err == nil {
		t.Error("Expected error when registering duplicate counter")
	}
}

func TestExporterStartShutdown(t *testing.T) {
	exporter := NewExporterWithRegistry(":0", prometheus.NewRegistry())

	errCh := make(chan error, 1)
	go func() {
		errCh <- exporter.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exporter.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on shutdown, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for server to stop")
	}
}
