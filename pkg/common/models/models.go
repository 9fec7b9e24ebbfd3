package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// EventPredictionCompleted is published once per answered prediction request.
const EventPredictionCompleted = "prediction.completed"

// PredictionCompleted is the payload of EventPredictionCompleted. It carries
// the outcome only, never the patient's input values.
type PredictionCompleted struct {
	RequestID    string    `json:"request_id"`
	Endpoint     string    `json:"endpoint"`
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Class        int       `json:"class"`
	Confidence   float64   `json:"confidence"`
	LatencyMs    float64   `json:"latency_ms"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Data converts the payload to the generic event data map.
func (p PredictionCompleted) Data() (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodePredictionCompleted reads the payload back out of an event.
func DecodePredictionCompleted(event Event) (PredictionCompleted, error) {
	if event.Type != EventPredictionCompleted {
		return PredictionCompleted{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return PredictionCompleted{}, err
	}
	var p PredictionCompleted
	if err := json.Unmarshal(raw, &p); err != nil {
		return PredictionCompleted{}, fmt.Errorf("decoding %s payload: %w", event.Type, err)
	}
	return p, nil
}
