package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestMetrics_RecordStage(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecordStage(context.Background(), "transcribe", "ok", 12.5)

	rm := collect(t, reader)
	got, ok := findMetric(rm, "meetmemo.stage.duration")
	if !ok {
		t.Fatal("stage duration metric not recorded")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 {
		t.Fatalf("data = %+v", got.Data)
	}
	if hist.DataPoints[0].Sum != 12.5 {
		t.Errorf("sum = %v", hist.DataPoints[0].Sum)
	}
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecordUpload(context.Background(), "created")
	m.RecordUpload(context.Background(), "duplicate")
	m.RecordProviderError(context.Background(), "whisper")

	rm := collect(t, reader)
	uploads, ok := findMetric(rm, "meetmemo.uploads.total")
	if !ok {
		t.Fatal("uploads counter not recorded")
	}
	sum, ok := uploads.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 2 {
		t.Fatalf("data = %+v", uploads.Data)
	}
	if _, ok := findMetric(rm, "meetmemo.provider.errors"); !ok {
		t.Fatal("provider errors counter not recorded")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	rm := collect(t, reader)
	got, ok := findMetric(rm, "meetmemo.http.request.duration")
	if !ok {
		t.Fatal("request duration not recorded")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 {
		t.Fatalf("data = %+v", got.Data)
	}
}
