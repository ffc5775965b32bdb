package monitoring

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestExportPrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("POST", "/predict", 200, 3*time.Millisecond)
	m.ObserveRequest("POST", "/predict", 422, 20*time.Millisecond)
	m.ObserveRequest("GET", "/health", 200, time.Millisecond/2)
	m.RecordPrediction("benign")
	m.RecordRejection("missing_fields")

	out := m.ExportPrometheus()
	for _, want := range []string{
		`http_requests_total{method="POST",route="/predict",status="200"} 1`,
		`http_requests_total{method="POST",route="/predict",status="422"} 1`,
		`http_request_duration_seconds_bucket{route="/predict",le="0.005"} 1`,
		`http_request_duration_seconds_bucket{route="/predict",le="0.05"} 2`,
		`http_request_duration_seconds_bucket{route="/predict",le="+Inf"} 2`,
		`http_request_duration_seconds_count{route="/health"} 1`,
		`predictions_total{label="benign"} 1`,
		`prediction_rejections_total{kind="missing_fields"} 1`,
		"# TYPE http_request_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	// /health sorts before /predict
	if strings.Index(out, `route="/health"`) > strings.Index(out, `route="/predict"`) {
		t.Fatalf("series are not sorted:\n%s", out)
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordPrediction("malignant")
			m.ObserveRequest("POST", "/predict", 200, time.Millisecond)
		}()
	}
	wg.Wait()

	if got := m.Predictions()["malignant"]; got != 50 {
		t.Fatalf("expected 50 predictions, got %d", got)
	}
}

func TestLabelValuesKeepUTF8(t *testing.T) {
	m := NewMetrics()
	m.RecordPrediction("bénin")
	m.RecordPrediction("say \"hi\"\\now\n")

	out := m.ExportPrometheus()
	for _, want := range []string{
		`predictions_total{label="bénin"} 1`,
		`predictions_total{label="say \"hi\"\\now\n"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, `\u00e9`) {
		t.Fatalf("non-ASCII label was Go-escaped:\n%s", out)
	}
}
