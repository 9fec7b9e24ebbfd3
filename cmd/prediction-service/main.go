package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/ckd/stats"
	"github.com/physickd/platform/pkg/common/config"
	"github.com/physickd/platform/pkg/common/database"
	"github.com/physickd/platform/pkg/common/kafka"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/gateway/middleware"
	"github.com/physickd/platform/pkg/serving"
	"github.com/physickd/platform/pkg/serving/predictor"
)

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := feature.Load(cfg.FeatureCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load feature catalog")
	}

	service := loadService(cfg, catalog)

	var publisher serving.EventPublisher
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg, cfg.PredictionEventTopic)
		defer producer.Close()
		publisher = producer
	} else {
		logger.Log.Info("Kafka not configured, prediction events disabled")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS, middleware.BodyLimit(cfg.MaxRequestBody))
	if cfg.RedisEnabled() {
		redisClient := database.NewRedis(cfg)
		defer redisClient.Close()
		resolver, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
		if err != nil {
			logger.Log.WithError(err).Fatal("Invalid TRUSTED_PROXIES")
		}
		router.Use(middleware.RedisRateLimit(redisClient, cfg.RateLimitPrefix, cfg.RateLimitRPS, cfg.RateLimitWindow, resolver))
	} else {
		router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	serving.NewHTTPHandler(service, cfg.MaxRequestBody, publisher).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Prediction Service stopped")
}

// loadService builds the prediction service. A missing or invalid artifact
// leaves the process up but not ready, and every prediction returns 503.
func loadService(cfg *config.Config, catalog *feature.Catalog) *serving.Service {
	table, err := stats.Load(cfg.StatisticsPath, catalog)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.StatisticsPath).Error("Failed to load statistics table")
		return serving.Unavailable(catalog, err)
	}

	classifier, err := predictor.Load(cfg.ClassifierPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ClassifierPath).Error("Failed to load classifier")
		return serving.Unavailable(catalog, err)
	}

	service, err := serving.NewService(catalog, table, classifier)
	if err != nil {
		logger.Log.WithError(err).Error("Classifier and statistics do not match the feature catalog")
		return serving.Unavailable(catalog, err)
	}

	info := classifier.Info()
	logger.Log.WithFields(map[string]interface{}{
		"model":         info.Name,
		"model_version": info.Version,
		"model_type":    info.Type,
		"stats_source":  table.Source(),
	}).Info("Classifier loaded")
	return service
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
