package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"diagserve/metadata"
	"diagserve/monitoring"
	"diagserve/predict"
)

// Predictor is the part of *predict.Service the routes need.
type Predictor interface {
	Health() predict.Health
	Features() metadata.Schema
	Predict(ctx context.Context, in predict.Input) (*predict.Result, error)
}

const errInternal = "internal server error"

type handler struct {
	svc     Predictor
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func RegisterHandlers(mux *http.ServeMux, svc Predictor, metrics *monitoring.Metrics, logger *zap.Logger) {
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	h := &handler{svc: svc, metrics: metrics, logger: logger}
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /features", h.handleFeatures)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Health())
}

func (h *handler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]metadata.Schema{"features": h.svc.Features()})
}

func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body", nil)
		return
	}

	in, err := predict.ParseInput(body)
	if err == nil {
		var result *predict.Result
		result, err = h.svc.Predict(r.Context(), in)
		if err == nil {
			h.metrics.RecordPrediction(result.Label)
			respondJSON(w, http.StatusOK, result)
			return
		}
	}

	var verr *predict.ValidationError
	if errors.As(err, &verr) {
		h.metrics.RecordRejection(string(verr.Kind))
		writeError(w, http.StatusUnprocessableEntity, verr.Error(), verr)
		return
	}
	h.logger.Error("prediction failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, errInternal, nil)
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = io.WriteString(w, h.metrics.ExportPrometheus())
}

// errorBody is the shape of every non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
	Error  any    `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, detail string, cause any) {
	body := errorBody{Detail: detail}
	if cause != nil {
		body.Error = cause
	}
	respondJSON(w, status, body)
}

// respondJSON encodes before writing the status so an encoding failure still
// becomes a 500.
func respondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"detail":"` + errInternal + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}
