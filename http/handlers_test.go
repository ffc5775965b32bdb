package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"diagserve/config"
	"diagserve/metadata"
	"diagserve/ml"
	"diagserve/predict"
)

type fakeModel struct {
	features int
	row      []float64
	err      error
	panics   bool
}

func (f *fakeModel) NumFeatures() int { return f.features }
func (f *fakeModel) NumClasses() int  { return len(f.row) }

func (f *fakeModel) PredictProba(X [][]float64) ([][]float64, error) {
	if f.panics {
		panic("model exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return [][]float64{append([]float64(nil), f.row...)}, nil
}

func testConfig() config.HTTP {
	cfg := config.Default().HTTP
	cfg.AllowedOrigin = "http://localhost:8501"
	cfg.MaxBodyBytes = 1024
	return cfg
}

func newTestServer(t *testing.T, model ml.Classifier) http.Handler {
	t.Helper()
	store, err := metadata.New(
		metadata.Schema{{Name: "radius", Default: 14.1}, {Name: "texture", Default: 19.3}},
		metadata.ClassLabels{"benign", "malignant"},
	)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := predict.NewService(store, model)
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(testConfig(), svc, zap.NewNop()).Handler()
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
	return payload
}

func post(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthWithShippedArtifacts(t *testing.T) {
	svc, err := predict.Bootstrap(predict.Options{
		ModelType:    ml.TypeLogisticRegression,
		ModelPath:    "../models/model.json",
		FeaturesPath: "../models/features_metadata.json",
		ClassesPath:  "../models/class_names.json",
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	handler := NewServer(testConfig(), svc, zap.NewNop()).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decode(t, rr)
	if payload["status"] != "ok" || payload["model_loaded"] != true || payload["n_features"].(float64) != 30 {
		t.Fatalf("unexpected health: %v", payload)
	}

	// the defaults from the metadata file must score without error
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/features", nil))
	var features struct {
		Features []struct {
			Name    string  `json:"name"`
			Default float64 `json:"default"`
		} `json:"features"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &features); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	values := make(map[string]float64, len(features.Features))
	for _, f := range features.Features {
		values[f.Name] = f.Default
	}
	body, _ := json.Marshal(map[string]any{"features": values})
	rr = post(handler, string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	label := decode(t, rr)["prediction_label"]
	if label != "malignant" && label != "benign" {
		t.Fatalf("unexpected label %v", label)
	}
}

func TestFeaturesHandler(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.5, 0.5}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/features", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	want := `{"features":[{"name":"radius","default":14.1},{"name":"texture","default":19.3}]}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Fatalf("unexpected body: got %s want %s", got, want)
	}
}

func TestPredictHandler(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.73, 0.27}})

	for _, body := range []string{
		`{"features": {"radius": 14.2, "texture": 20.1}}`,
		`{"features": [14.2, 20.1]}`,
	} {
		rr := post(handler, body)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		want := `{"prediction_label":"benign","probabilities":{"benign":0.73,"malignant":0.27},"feature_order":["radius","texture"]}`
		if got := strings.TrimSpace(rr.Body.String()); got != want {
			t.Fatalf("unexpected body: got %s want %s", got, want)
		}
	}
}

func TestPredictValidationErrors(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.5, 0.5}})

	cases := map[string]struct {
		body   string
		detail string
		kind   string
	}{
		"missing field": {`{"features": {"radius": 1}}`, `missing fields: ["texture"]`, "missing_fields"},
		"short list":    {`{"features": [1]}`, "expected length 2, received length 1", "length_mismatch"},
		"not a number":  {`{"features": [1, "abc"]}`, `position 1: value "abc" is not a number`, "not_numeric"},
		"no features":   {`{}`, `field "features" is required`, "malformed_body"},
		"bad json":      {`{`, "", "malformed_body"},
	}
	for name, tc := range cases {
		rr := post(handler, tc.body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", name, rr.Code)
		}
		payload := decode(t, rr)
		if tc.detail != "" && payload["detail"] != tc.detail {
			t.Fatalf("%s: unexpected detail %v", name, payload["detail"])
		}
		if payload["error"].(map[string]any)["kind"] != tc.kind {
			t.Fatalf("%s: unexpected error %v", name, payload["error"])
		}
	}
}

func TestPredictInternalError(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.5, 0.5}, err: errors.New("boom")})

	rr := post(handler, `{"features": [1, 2]}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if payload := decode(t, rr); payload["detail"] != errInternal {
		t.Fatalf("internal details must not leak: %v", payload)
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.5, 0.5}})

	body := `{"features": [1, 2], "pad": "` + strings.Repeat("x", 2048) + `"}`
	if rr := post(handler, body); rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.5, 0.5}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/predict", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/nope", bytes.NewReader(nil)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t, &fakeModel{features: 2, row: []float64{0.2, 0.8}})

	post(handler, `{"features": [1, 2]}`)
	post(handler, `{"features": [1]}`)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`predictions_total{label="malignant"} 1`,
		`prediction_rejections_total{kind="length_mismatch"} 1`,
		`http_requests_total{method="POST",route="/predict",status="422"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in\n%s", want, body)
		}
	}
}

func TestPredictExtremeInputWithShippedModel(t *testing.T) {
	svc, err := predict.Bootstrap(predict.Options{
		ModelType:    ml.TypeLogisticRegression,
		ModelPath:    "../models/model.json",
		FeaturesPath: "../models/features_metadata.json",
		ClassesPath:  "../models/class_names.json",
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	values := make([]string, 30)
	for i := range values {
		values[i] = "1e308"
	}
	handler := NewServer(testConfig(), svc, zap.NewNop()).Handler()

	rr := post(handler, `{"features": [`+strings.Join(values, ",")+`]}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %q", rr.Code, rr.Body.String())
	}
	if payload := decode(t, rr); payload["detail"] != errInternal {
		t.Fatalf("unexpected body: %v", payload)
	}
}

func TestRespondJSONEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	respondJSON(rr, http.StatusOK, map[string]float64{"p": math.NaN()})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if payload := decode(t, rr); payload["detail"] != errInternal {
		t.Fatalf("unexpected body: %v", payload)
	}
}
