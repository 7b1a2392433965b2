package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"model-promotion-service/internal/adapters/primary/http/handlers"
	"model-promotion-service/internal/adapters/primary/http/middleware"
	"model-promotion-service/internal/adapters/secondary/artifact"
	"model-promotion-service/internal/adapters/secondary/githubhook"
	"model-promotion-service/internal/adapters/secondary/memory"
	"model-promotion-service/internal/adapters/secondary/postgres"
	"model-promotion-service/internal/config"
	ports "model-promotion-service/internal/core/ports/output"
	"model-promotion-service/internal/core/services"
	"model-promotion-service/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Registry store backend
	var (
		store ports.RegistryStore
		pool  *pgxpool.Pool
	)
	switch cfg.Registry.Backend {
	case "memory":
		store = memory.NewRegistryStore()
		log.Info("using in-memory registry store")
	default:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			log.Fatalf("parse db config: %v", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("create db pool: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping db: %v", err)
		}
		log.Info("database connection established")

		store = postgres.NewRegistryStore(pool)
	}

	// Artifact store (local files, plus GCS when configured)
	var gcsStore *artifact.GCSStore
	if cfg.Artifacts.GCSEnabled {
		gcsStore, err = artifact.NewGCSStore(context.Background(), cfg.Artifacts.GCSCredentialsFile)
		if err != nil {
			log.Warnf("GCS client init failed (continuing with local artifacts only): %v", err)
		} else {
			defer gcsStore.Close()
			log.Info("GCS artifact store initialized")
		}
	}
	artifacts := artifact.NewStore(gcsStore)

	collector := metrics.NewCollector("model_promotion", prometheus.DefaultRegisterer)

	// Core services
	promotionSvc := services.NewPromotionService(store, cfg.Model.Name, cfg.Model.RecognizedTags, collector)
	servingSvc := services.NewServingService(store, artifacts, cfg.Model.Name, cfg.Serving, collector)

	// An in-process promotion refreshes the serving cache immediately.
	promotionSvc.Subscribe(servingSvc)

	// The CI redeploy trigger, when configured.
	if cfg.GithubHook.Enabled {
		promotionSvc.Subscribe(githubhook.NewClient(&cfg.GithubHook))
		log.Info("github workflow dispatch hook enabled")
	}

	h := handlers.New(promotionSvc, servingSvc, cfg.Model.TargetMetric, cfg.Model.HigherIsBetter)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Metrics(collector), gin.Recovery())

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Liveness with DB ping when a pool is in play
	router.GET("/healthz", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Warm the serving cache; failure degrades to fallback serving.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Serving.ArtifactTimeout)
	state := servingSvc.Reload(warmCtx)
	warmCancel()
	log.WithFields(log.Fields{
		"model":   cfg.Model.Name,
		"status":  state.Status,
		"version": state.VersionLabel(),
	}).Info("initial model load")

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
