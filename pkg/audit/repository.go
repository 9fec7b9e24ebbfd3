// Package audit keeps a durable log of answered predictions. Entries hold the
// outcome and model metadata but never the patient's input values.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/physickd/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// PredictionLog is the persistence model for answered predictions.
type PredictionLog struct {
	ID             uuid.UUID         `gorm:"primaryKey;column:id" json:"id"`
	EventID        string            `gorm:"column:event_id;index" json:"event_id"`
	RequestID      string            `gorm:"column:request_id;index" json:"request_id"`
	Endpoint       string            `gorm:"column:endpoint" json:"endpoint"`
	ModelName      string            `gorm:"column:model_name" json:"model_name"`
	ModelVersion   string            `gorm:"column:model_version" json:"model_version"`
	PredictedClass int               `gorm:"column:predicted_class" json:"predicted_class"`
	Confidence     float64           `gorm:"column:confidence" json:"confidence"`
	LatencyMs      float64           `gorm:"column:latency_ms" json:"latency_ms"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CompletedAt    time.Time         `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt      time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, event models.Event, p models.PredictionCompleted) error {
	log := PredictionLog{
		ID:             uuid.New(),
		EventID:        event.ID,
		RequestID:      p.RequestID,
		Endpoint:       p.Endpoint,
		ModelName:      p.ModelName,
		ModelVersion:   p.ModelVersion,
		PredictedClass: p.Class,
		Confidence:     p.Confidence,
		LatencyMs:      p.LatencyMs,
		Metadata:       datatypes.JSONMap{"source": event.Source},
		CompletedAt:    p.CompletedAt,
		CreatedAt:      time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
