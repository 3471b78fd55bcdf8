// internal/api/api.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// AuthService covers the account endpoints and bearer token checks.
type AuthService interface {
	handlers.AuthService
	middleware.Authenticator
}

type Services struct {
	Auth      AuthService
	Ingest    handlers.Uploader
	Analytics handlers.AnalyticsService
	// Drive is optional; the import route is only mounted when set.
	Drive handlers.DriveImporter
	// Ping checks the database for /health.
	Ping func(ctx context.Context) error
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Options struct {
	AllowedOrigins []string
	UploadDir      string
	MaxUploadMB    int64
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	maxBytes := opts.MaxUploadMB << 20
	if maxBytes > 0 {
		router.MaxMultipartMemory = maxBytes
	}

	router.GET("/health", healthHandler(services.Ping))
	router.GET("/metrics", gin.WrapH(metricsHandler(services.Gatherer)))

	apiGroup := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(services.Auth)
	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protected := apiGroup.Group("")
	protected.Use(middleware.RequireAuth(services.Auth))

	protected.GET("/auth/me", authHandler.Me)

	salesHandler := handlers.NewSalesHandler(services.Ingest, opts.UploadDir, maxBytes)
	protected.POST("/sales/upload", salesHandler.Upload)

	analyticsHandler := handlers.NewAnalyticsHandler(services.Analytics)
	productGroup := protected.Group("/products")
	{
		productGroup.GET("", analyticsHandler.ListProducts)
		productGroup.GET("/:id", analyticsHandler.ProductDetail)
		productGroup.PUT("/:id/stock", analyticsHandler.UpdateStock)
	}
	protected.POST("/forecasts/run", analyticsHandler.RunForecasts)
	protected.GET("/dashboard", analyticsHandler.Dashboard)
	protected.GET("/export/excel", analyticsHandler.ExportExcel)

	if services.Drive != nil {
		driveHandler := handlers.NewDriveHandler(services.Drive)
		protected.POST("/drive/import", driveHandler.Import)
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	return corsConfig
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Log.Error().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
