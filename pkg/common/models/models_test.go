package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionCompletedThroughEvent(t *testing.T) {
	completed := PredictionCompleted{
		RequestID:    "req-1",
		Endpoint:     "/api/v1/predict",
		ModelName:    "ckd-gb",
		ModelVersion: "3",
		Class:        1,
		Confidence:   0.93,
		LatencyMs:    1.5,
		CompletedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := completed.Data()
	require.NoError(t, err)
	assert.Equal(t, "req-1", data["request_id"])

	got, err := DecodePredictionCompleted(Event{Type: EventPredictionCompleted, Data: data})
	require.NoError(t, err)
	assert.Equal(t, completed, got)
}

func TestDecodePredictionCompletedRejectsOtherEvents(t *testing.T) {
	_, err := DecodePredictionCompleted(Event{Type: "upstream"})
	assert.Error(t, err)

	_, err = DecodePredictionCompleted(Event{Type: EventPredictionCompleted, Data: map[string]interface{}{"class": "one"}})
	assert.Error(t, err)
}
