package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/physickd/platform/pkg/audit"
	"github.com/physickd/platform/pkg/common/config"
	"github.com/physickd/platform/pkg/common/database"
	"github.com/physickd/platform/pkg/common/kafka"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/gateway/middleware"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	repo := audit.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.KafkaEnabled() {
		consumer := kafka.NewConsumer(cfg, cfg.PredictionEventTopic, cfg.KafkaGroupID)
		defer consumer.Close()
		recorder := audit.NewRecorder(repo)

		go func() {
			logger.Log.WithField("topic", cfg.PredictionEventTopic).Info("Consuming prediction events")
			if err := consumer.Consume(ctx, recorder.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.WithError(err).Error("Prediction event consumer stopped")
			}
		}()
	} else {
		logger.Log.Warn("Kafka not configured, no prediction events will be audited")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	audit.NewHTTPHandler(repo).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AuditServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.AuditServerPort,
		}).Info("Audit Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Audit Service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Audit Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
