package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/physickd/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(gdb), mock
}

func TestRecordPrediction(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "prediction_logs"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordPrediction(context.Background(),
		models.Event{ID: "evt-1", Source: "prediction-service"},
		models.PredictionCompleted{RequestID: "req-1", ModelName: "ckd-gb", Class: 1, Confidence: 0.9},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "event_id", "request_id", "endpoint", "model_name", "model_version",
		"predicted_class", "confidence", "latency_ms", "metadata", "completed_at", "created_at",
	}).AddRow(id.String(), "evt-1", "req-1", "/api/v1/predict", "ckd-gb", "3",
		1, 0.93, 1.5, []byte(`{"source":"prediction-service"}`), now, now)

	mock.ExpectQuery(`SELECT \* FROM "prediction_logs" ORDER BY created_at DESC LIMIT`).
		WillReturnRows(rows)

	logs, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, id, logs[0].ID)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, 1, logs[0].PredictedClass)
	assert.Equal(t, "prediction-service", logs[0].Metadata["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
