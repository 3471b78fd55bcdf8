package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/api"
	"github.com/andresuchdata/stockcast/backend-go/internal/auth"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/drive"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast"
	"github.com/andresuchdata/stockcast/backend-go/internal/ingest"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/internal/notify"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/internal/storage"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// App holds every service built from one configuration and database.
type App struct {
	DB       *postgres.DB
	Registry *prometheus.Registry
	Engine   *forecast.Engine
	Archive  *storage.Archiver
	Cache    cache.AnalyticsCache

	Ingest    *service.IngestService
	Analytics *service.AnalyticsService
	Auth      *service.AuthService
	// Importer is nil when drive credentials are not configured.
	Importer *drive.Importer
}

func New(ctx context.Context, cfg *config.Config, db *postgres.DB) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	policy, err := analytics.PolicyFromConfig(cfg.Analytics)
	if err != nil {
		return nil, err
	}

	ingestCfg := cfg.Ingest
	if ingestCfg.DatePolicy, err = ingest.ParseDatePolicy(ingestCfg.DatePolicy); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return nil, err
	}

	archive, err := storage.NewArchiverFromConfig(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	analyticsCache, err := cache.NewAnalyticsCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("analytics cache unavailable, continuing without it")
		analyticsCache = cache.NewNoopAnalyticsCache()
	}

	sales := postgres.NewSalesRepository(db)
	products := postgres.NewProductRepository(db)
	forecasts := postgres.NewForecastRepository(db)
	users := postgres.NewUserRepository(db)

	engine := forecast.NewEngine(forecasts, forecast.ConfigFrom(cfg.Forecast), m)

	a := &App{
		DB:        db,
		Registry:  registry,
		Engine:    engine,
		Archive:   archive,
		Cache:     analyticsCache,
		Ingest:    service.NewIngestService(sales, engine, analyticsCache, archive, m, ingestCfg),
		Analytics: service.NewAnalyticsService(products, sales, forecasts, analytics.NewCalculator(policy), engine, analyticsCache),
		Auth:      service.NewAuthService(users, tokens, notify.New(cfg.Mail)),
	}

	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("drive import disabled")
		} else {
			a.Importer = drive.NewImporter(driveService, a.Ingest, cfg.Drive.FolderID)
		}
	}

	return a, nil
}

// Services exposes the app to the HTTP router.
func (a *App) Services() *api.Services {
	s := &api.Services{
		Auth:      a.Auth,
		Ingest:    a.Ingest,
		Analytics: a.Analytics,
		Ping:      a.DB.PingContext,
		Gatherer:  a.Registry,
	}
	if a.Importer != nil {
		s.Drive = a.Importer
	}
	return s
}

// Close waits for queued e-mails and releases the cache connection.
func (a *App) Close() error {
	a.Auth.WaitForMail()
	return a.Cache.Close()
}
