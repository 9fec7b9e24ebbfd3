package audit

import (
	"context"

	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/common/models"
)

// Store is the write side of Repository.
type Store interface {
	RecordPrediction(ctx context.Context, event models.Event, p models.PredictionCompleted) error
}

// Recorder turns prediction events into audit rows. Its Handle method is a
// kafka.EventHandler.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Handle persists prediction.completed events and skips every other type.
// Store errors are returned and the consumer retries the same message
// until the store accepts it. Undecodable payloads are dropped.
func (rec *Recorder) Handle(ctx context.Context, event models.Event) error {
	if event.Type != models.EventPredictionCompleted {
		return nil
	}

	p, err := models.DecodePredictionCompleted(event)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping malformed prediction event")
		return nil
	}

	if err := rec.store.RecordPrediction(ctx, event, p); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"request_id": p.RequestID,
		"class":      p.Class,
	}).Debug("Prediction audited")
	return nil
}
