package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ofie/server/config"
	"ofie/server/internal/api"
	"ofie/server/internal/database"
	"ofie/server/internal/geocoding"
	"ofie/server/internal/recommend"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := cfg.NewLogger()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Database.Path)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if cfg.Database.SeedPath != "" {
		data, err := database.LoadSeedFile(cfg.Database.SeedPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load seed data")
		}
		if err := db.Seed(context.Background(), data); err != nil {
			logger.WithError(err).Fatal("Failed to seed database")
		}
		logger.WithField("listings", len(data.Listings)).Info("Seeded database")
	}

	if cfg.Geocoding.Enabled {
		cacheDir := cfg.Geocoding.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "ofie", "geocode_cache")
		}
		geocoder := geocoding.NewGeocoder(logger, cacheDir, cfg.Geocoding.Endpoint)
		if _, err := geocoder.Backfill(context.Background(), db); err != nil {
			logger.WithError(err).Error("Failed to update coordinates")
		}
	}

	scoring, err := config.LoadScoring(cfg.Recommendation.ScoringPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load scoring configuration")
	}
	metros, err := config.LoadMetroAreas(cfg.Recommendation.MetroAreasPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load metropolitan areas")
	}
	logger.WithField("areas", len(metros)).Info("Loaded metropolitan areas")

	recommender, err := recommend.NewRecommender(db, db, scoring, logger, recommend.WithMetroAreas(metros))
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize recommender")
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(recommender, db, logger)
	router := api.NewRouter(handler, metros, cfg.Server.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
