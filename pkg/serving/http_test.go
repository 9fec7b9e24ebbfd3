package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/common/models"
	"github.com/physickd/platform/pkg/gateway/middleware"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	eventType string
	source    string
	data      map[string]interface{}
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, source: source, data: data})
	return p.err
}

func newRouter(svc *Service, publisher EventPublisher) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	NewHTTPHandler(svc, 1<<20, publisher).Register(router)
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlePredict(t *testing.T) {
	pub := &recordingPublisher{}
	h := newRouter(newFixtureService(t), pub)

	for _, path := range []string{"/api/v1/predict", "/predict"} {
		rec := do(t, h, http.MethodPost, path, sampleRequest)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1.0, body["class"])
		assert.InDelta(t, 0.8807970779778823, body["confidence"], 1e-9)
		assert.Equal(t, "CKD", body["prediction_text"])
		assert.Len(t, body["patient_values"], 9)
		assert.Len(t, body["comparison_data"], 9)
	}

	require.Len(t, pub.events, 2)
	ev := pub.events[0]
	assert.Equal(t, models.EventPredictionCompleted, ev.eventType)
	assert.Equal(t, EventSource, ev.source)
	assert.Equal(t, "ckd-logistic-fixture", ev.data["model_name"])
	assert.NotEmpty(t, ev.data["request_id"])
	assert.NotContains(t, ev.data, "patient_values")
}

func TestHandlePredictMissingField(t *testing.T) {
	pub := &recordingPublisher{}
	h := newRouter(newFixtureService(t), pub)

	rec := do(t, h, http.MethodPost, "/api/v1/predict", `{"age":65,"bp":140,"hemo":12.5,"sg":1,"rbcc":4.5,"pcv":40,"htn":1,"dm":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, feature.SC, body["field"])
	assert.Contains(t, body["error"], "sc")
	assert.Empty(t, pub.events)
}

func TestHandlePredictBadInput(t *testing.T) {
	h := newRouter(newFixtureService(t), nil)

	cases := map[string]struct {
		body  string
		field string
	}{
		"string value":   {body: `{"age":"old"}`, field: "age"},
		"bad sg code":    {body: strings.Replace(sampleRequest, `"sg":1`, `"sg":1.015`, 1), field: "sg"},
		"bad htn code":   {body: strings.Replace(sampleRequest, `"htn":1`, `"htn":2`, 1), field: "htn"},
		"malformed json": {body: `{"age":`},
		"empty body":     {body: ``},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/predict", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.field, body.Field)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandlePredictUnavailable(t *testing.T) {
	pub := &recordingPublisher{}
	h := newRouter(Unavailable(feature.Default(), errors.New("artifact missing")), pub)

	rec := do(t, h, http.MethodPost, "/api/v1/predict", sampleRequest)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"prediction service unavailable"}`, rec.Body.String())
	assert.Empty(t, pub.events)

	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/models", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublishFailureDoesNotChangeResponse(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	h := newRouter(newFixtureService(t), pub)

	rec := do(t, h, http.MethodPost, "/api/v1/predict", sampleRequest)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, pub.events, 1)
}

func TestHandleBatch(t *testing.T) {
	h := newRouter(newFixtureService(t), nil)

	rec := do(t, h, http.MethodPost, "/api/v1/predict/batch", `{"patients":[`+sampleRequest+`,`+sampleRequest+`]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Predictions, 2)

	rec = do(t, h, http.MethodPost, "/api/v1/predict/batch", `{"patients":[`+sampleRequest+`,{"age":50}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Index)
	assert.Equal(t, 1, *body.Index)
	assert.NotEmpty(t, body.Field)

	rec = do(t, h, http.MethodPost, "/api/v1/predict/batch", `{"patients":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExampleModelsFeatures(t *testing.T) {
	h := newRouter(newFixtureService(t), nil)

	rec := do(t, h, http.MethodGet, "/api/v1/predict/example", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prediction_text":"NO CKD"`)

	rec = do(t, h, http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "logistic", info["type"])
	assert.Len(t, info["feature_names"], 9)
	assert.Equal(t, map[string]interface{}{
		"source":       "ckd_imputed.csv",
		"generated_at": "2024-05-01T00:00:00Z",
	}, info["statistics"])

	rec = do(t, h, http.MethodGet, "/api/v1/features", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var features struct {
		Features []feature.Descriptor `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &features))
	assert.Len(t, features.Features, 9)
}

func TestProbes(t *testing.T) {
	h := newRouter(newFixtureService(t), nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/live", "").Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "physickd_predictions_total")
}

func TestBodyLimit(t *testing.T) {
	hook := logtest.NewLocal(logger.Log)
	t.Cleanup(hook.Reset)

	router := mux.NewRouter()
	NewHTTPHandler(newFixtureService(t), 16, nil).Register(router)

	rec := do(t, router, http.MethodPost, "/api/v1/predict", sampleRequest)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "prediction request body too large", entry.Message)
}

func TestCORSPreflight(t *testing.T) {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS, middleware.BodyLimit(1<<20))
	router.Use(middleware.RateLimit(20, 40))
	NewHTTPHandler(newFixtureService(t), 1<<20, nil).Register(router)

	for _, path := range []string{"/api/v1/predict", "/api/v1/predict/batch", "/predict", "/api/v1/models"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "http://dashboard.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost, path)
	}

	rec := do(t, router, http.MethodPost, "/api/v1/predict", sampleRequest)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
