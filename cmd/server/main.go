// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/backend-go/internal/api"
	"github.com/andresuchdata/stockcast/backend-go/internal/app"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Log.Info().Msg("Server exiting")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, "up"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	application, err := app.New(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("initialise services: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to release resources")
		}
	}()

	router := api.NewRouter(application.Services(), api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadDir:      cfg.App.UploadDir,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
	})

	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      writeTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down server...")

	// In-flight uploads get the write timeout to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
