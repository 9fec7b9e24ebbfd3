package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	predictionsTotal    atomic.Int64
	predictionsPositive atomic.Int64
	validationFailures  atomic.Int64
	inferenceFailures   atomic.Int64
	rateLimited         atomic.Int64
	eventsPublished     atomic.Int64
	eventPublishErrors  atomic.Int64
	latencyMicrosTotal  atomic.Int64
)

// ObservePrediction records one answered prediction.
func ObservePrediction(class int, latency time.Duration) {
	predictionsTotal.Add(1)
	if class == 1 {
		predictionsPositive.Add(1)
	}
	latencyMicrosTotal.Add(latency.Microseconds())
}

func ObserveValidationFailure() {
	validationFailures.Add(1)
}

func ObserveInferenceFailure() {
	inferenceFailures.Add(1)
}

func ObserveRateLimited() {
	rateLimited.Add(1)
}

// ObserveEventPublish counts prediction events handed to the broker.
func ObserveEventPublish(err error) {
	if err != nil {
		eventPublishErrors.Add(1)
		return
	}
	eventsPublished.Add(1)
}

// Reset zeroes every counter. Tests only.
func Reset() {
	for _, c := range []*atomic.Int64{
		&predictionsTotal, &predictionsPositive, &validationFailures, &inferenceFailures,
		&rateLimited, &eventsPublished, &eventPublishErrors, &latencyMicrosTotal,
	} {
		c.Store(0)
	}
}

func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	WritePrometheus(w)
}

func WritePrometheus(w io.Writer) {
	counter(w, "physickd_predictions_total", "Number of predictions answered.", predictionsTotal.Load())
	counter(w, "physickd_predictions_positive_total", "Number of predictions answered with class CKD.", predictionsPositive.Load())
	counter(w, "physickd_prediction_validation_failures_total", "Number of prediction requests rejected as invalid.", validationFailures.Load())
	counter(w, "physickd_prediction_inference_failures_total", "Number of prediction requests failed by the classifier.", inferenceFailures.Load())
	counter(w, "physickd_http_rate_limited_total", "Number of requests rejected by the rate limiter.", rateLimited.Load())
	counter(w, "physickd_prediction_events_published_total", "Number of prediction events published.", eventsPublished.Load())
	counter(w, "physickd_prediction_event_errors_total", "Number of prediction events that failed to publish.", eventPublishErrors.Load())

	fmt.Fprintf(w, "# HELP physickd_prediction_latency_seconds_sum Total time spent answering predictions.\n")
	fmt.Fprintf(w, "# TYPE physickd_prediction_latency_seconds_sum counter\n")
	fmt.Fprintf(w, "physickd_prediction_latency_seconds_sum %g\n", float64(latencyMicrosTotal.Load())/1e6)
}

func counter(w io.Writer, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
