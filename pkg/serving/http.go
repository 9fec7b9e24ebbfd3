package serving

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/physickd/platform/pkg/ckd"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/common/models"
	"github.com/physickd/platform/pkg/gateway/middleware"
	"github.com/physickd/platform/pkg/observability/metrics"
	"github.com/physickd/platform/pkg/serving/predictor"
)

// EventSource names this service on published events.
const EventSource = "prediction-service"

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type HTTPHandler struct {
	service   *Service
	maxBody   int64
	publisher EventPublisher
}

// NewHTTPHandler wires the prediction routes. publisher may be nil, in which
// case no prediction events are emitted.
func NewHTTPHandler(service *Service, maxBody int64, publisher EventPublisher) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody, publisher: publisher}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/live", handleLive).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	api.HandleFunc("/predict/batch", h.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/predict/example", h.handleExample).Methods(http.MethodGet)
	api.HandleFunc("/models", h.handleModels).Methods(http.MethodGet)
	api.HandleFunc("/features", h.handleFeatures).Methods(http.MethodGet)

	// Router middleware (CORS among it) only runs for a matched route.
	router.Methods(http.MethodOptions).HandlerFunc(handlePreflight)
}

// BatchRequest is the body of POST /api/v1/predict/batch.
type BatchRequest struct {
	Patients []ckd.PatientInput `json:"patients"`
}

type BatchResponse struct {
	Predictions []ckd.Result `json:"predictions"`
	Count       int          `json:"count"`
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	predictor.Info
	Statistics StatisticsInfo `json:"statistics"`
}

type StatisticsInfo struct {
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in ckd.PatientInput
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.Predict(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.completed(r, res, time.Since(start))
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BatchRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.service.PredictBatch(r.Context(), req.Patients)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	latency := time.Since(start)
	for _, res := range results {
		h.completed(r, res, latency/time.Duration(len(results)))
	}
	writeJSON(w, http.StatusOK, BatchResponse{Predictions: results, Count: len(results)})
}

func (h *HTTPHandler) handleExample(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	res, err := h.service.Predict(r.Context(), ckd.InputFromVector(ExampleVector()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.completed(r, res, time.Since(start))
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ModelInfo()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	table := h.service.Statistics()
	writeJSON(w, http.StatusOK, ModelsResponse{
		Info:       info,
		Statistics: StatisticsInfo{Source: table.Source(), GeneratedAt: table.GeneratedAt()},
	})
}

func (h *HTTPHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": h.service.Catalog().Descriptors(),
	})
}

func (h *HTTPHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// decode reads a JSON body. Type mismatches name the offending field.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return ckd.InvalidField(typeErr.Field, "must be a number")
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return errBadBody
}

var (
	errBadBody      = errors.New("invalid request body")
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.Log.WithError(err).WithField("request_id", middleware.RequestID(r.Context()))

	switch {
	case errors.Is(err, errBodyTooLarge):
		metrics.ObserveValidationFailure()
		log.Warn("prediction request body too large")
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	case errors.Is(err, errBadBody), errors.Is(err, errEmptyBody):
		metrics.ObserveValidationFailure()
		log.Warn("invalid prediction payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case ckd.IsValidationError(err):
		metrics.ObserveValidationFailure()
		var ve ckd.ValidationError
		errors.As(err, &ve)
		resp := errorResponse{Error: err.Error(), Field: ve.Field}
		var be BatchError
		if errors.As(err, &be) {
			resp.Index = &be.Index
		}
		log.Warn("rejected prediction request")
		writeJSON(w, http.StatusBadRequest, resp)
	case ckd.IsInferenceError(err):
		metrics.ObserveInferenceFailure()
		log.Error("prediction failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "prediction service unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn("prediction request cancelled")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	default:
		log.Error("failed to serve prediction")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// completed records an answered prediction. Publishing failures are logged
// and never change the response.
func (h *HTTPHandler) completed(r *http.Request, res ckd.Result, latency time.Duration) {
	metrics.ObservePrediction(res.Class, latency)

	requestID := middleware.RequestID(r.Context())
	info, _ := h.service.ModelInfo()
	logger.Log.WithFields(map[string]interface{}{
		"request_id":    requestID,
		"class":         res.Class,
		"confidence":    res.Confidence,
		"model_version": info.Version,
		"latency_ms":    latency.Milliseconds(),
	}).Info("Prediction completed")

	if h.publisher == nil {
		return
	}

	data, err := models.PredictionCompleted{
		RequestID:    requestID,
		Endpoint:     r.URL.Path,
		ModelName:    info.Name,
		ModelVersion: info.Version,
		Class:        res.Class,
		Confidence:   res.Confidence,
		LatencyMs:    float64(latency.Microseconds()) / 1000.0,
		CompletedAt:  time.Now().UTC(),
	}.Data()
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode prediction event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()
	err = h.publisher.PublishEvent(ctx, models.EventPredictionCompleted, EventSource, data)
	metrics.ObserveEventPublish(err)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", requestID).Warn("failed to publish prediction event")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
