package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/physickd/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	recorded []models.PredictionCompleted
	err      error
}

func (m *memoryStore) RecordPrediction(ctx context.Context, event models.Event, p models.PredictionCompleted) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, p)
	return nil
}

func predictionEvent(t *testing.T) models.Event {
	t.Helper()
	data, err := models.PredictionCompleted{RequestID: "req-1", Class: 0, Confidence: 0.8}.Data()
	require.NoError(t, err)
	return models.Event{ID: "evt-1", Type: models.EventPredictionCompleted, Data: data}
}

func TestRecorderStoresPredictionEvents(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store)

	require.NoError(t, rec.Handle(context.Background(), predictionEvent(t)))
	require.NoError(t, rec.Handle(context.Background(), models.Event{Type: "something.else"}))
	require.NoError(t, rec.Handle(context.Background(), models.Event{
		Type: models.EventPredictionCompleted,
		Data: map[string]interface{}{"class": "positive"},
	}))

	require.Len(t, store.recorded, 1)
	assert.Equal(t, "req-1", store.recorded[0].RequestID)
}

func TestRecorderReturnsStoreErrors(t *testing.T) {
	rec := NewRecorder(&memoryStore{err: errors.New("db down")})
	assert.Error(t, rec.Handle(context.Background(), predictionEvent(t)))
}
