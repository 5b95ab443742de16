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
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/config"
	"github.com/kspirits/platform/pkg/common/database"
	"github.com/kspirits/platform/pkg/common/kafka"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/enrich"
	"github.com/kspirits/platform/pkg/imagesearch"
	"github.com/kspirits/platform/pkg/ingest"
	"github.com/kspirits/platform/pkg/observability/metrics"
	"github.com/kspirits/platform/pkg/pipeline"
	"github.com/kspirits/platform/pkg/publish"
)

func main() {
	logger.Init()
	cfg := config.Load()
	metrics.Init()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := catalog.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate catalog tables")
	}

	producer := kafka.NewProducer(cfg.CatalogTopic)
	defer producer.Close()

	var dlqProducer *kafka.Producer
	if cfg.CatalogDLQTopic != "" {
		dlqProducer = kafka.NewProducer(cfg.CatalogDLQTopic)
		defer dlqProducer.Close()
	}

	var generator enrich.Generator = enrich.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMTemperature)
	generator = enrich.NewCachedGenerator(generator, database.GetRedis(), cfg.EnrichCacheTTL)

	searcher := imagesearch.NewClient(cfg.ImageSearchBaseURL, cfg.ImageSearchTimeout)

	manifest, err := ingest.LoadManifest(cfg.SourceManifest, cfg.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load source manifest")
	}
	merger := ingest.NewMerger(manifest, cfg.BufferFile)
	loader := ingest.NewLoader(merger, repo, producer, dlqProducer)

	ingestHandler := ingest.NewHTTPHandler(merger, loader, cfg.MaxRequestBody)
	pipelineHandler := pipeline.NewHTTPHandler(pipeline.Deps{
		Store:            repo,
		Generator:        generator,
		Searcher:         searcher,
		Producer:         producer,
		Merger:           merger,
		Loader:           loader,
		EnrichBatchSize:  cfg.EnrichBatchSize,
		ImageBatchSize:   cfg.ImageBatchSize,
		RefillPeriod:     cfg.BucketRefillPeriod,
		RateLimitPause:   cfg.RateLimitPause,
		RateLimitRetries: cfg.RateLimitRetries,
	}, cfg.MaxRequestBody)
	publishHandler := publish.NewHTTPHandler(publish.NewService(repo, generator, producer), cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	ingestHandler.Register(api)
	pipelineHandler.Register(api)
	publishHandler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Admin Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Admin Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Admin Service stopped")
}
