// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Ingest    IngestConfig
	Forecast  ForecastConfig
	Analytics AnalyticsConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Mail      MailConfig
	Drive     DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int64
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MaxConcurrentTx caps the number of transactions open at once.
	MaxConcurrentTx int64
}

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

// IngestConfig controls CSV normalisation and the history gate.
type IngestConfig struct {
	MinHistoryDays     int
	DatePolicy         string // "drop" or "strict"
	DefaultStock       float64
	DefaultStockFixed  float64
	DefaultUnitPrice   float64
	DefaultProductName string
}

type ForecastConfig struct {
	HorizonDays       int
	MinPoints         int
	Workers           int
	FitTimeoutSeconds int
	IntervalWidth     float64
	WeeklyOrder       int
	YearlyOrder       int
	YearlyMinSpanDays int
	Regularization    float64
}

// AnalyticsConfig selects a named policy profile. A nil override keeps the
// profile's number; a set one, zero included, replaces it.
type AnalyticsConfig struct {
	Profile               string
	DemandWindowDays      *int
	HistoryWindowDays     *int
	CriticalCoverDays     *float64
	ExcessCoverDays       *float64
	CriticalStockQty      *float64
	ExcessStockQty        *float64
	TargetCoverDays       *float64
	ReorderMultiplierDays *float64
	UrgentDays            *int
	LeadTimeDays          *float64
	SafetyStockDays       *float64
	TopN                  *int
	CurrencySymbol        string
}

type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	TokenTTLHours int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockcast")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)

	viper.SetDefault("INGEST_MIN_HISTORY_DAYS", 30)
	viper.SetDefault("INGEST_DATE_POLICY", "drop")
	viper.SetDefault("INGEST_DEFAULT_STOCK", 100)
	viper.SetDefault("INGEST_DEFAULT_STOCK_FIXED", 0)
	viper.SetDefault("INGEST_DEFAULT_UNIT_PRICE", 100)
	viper.SetDefault("INGEST_DEFAULT_PRODUCT_NAME", "Product %s")

	viper.SetDefault("FORECAST_HORIZON_DAYS", 30)
	viper.SetDefault("FORECAST_MIN_POINTS", 30)
	viper.SetDefault("FORECAST_WORKERS", 4)
	viper.SetDefault("FORECAST_FIT_TIMEOUT_SECONDS", 20)
	viper.SetDefault("FORECAST_INTERVAL_WIDTH", 0.95)
	viper.SetDefault("FORECAST_WEEKLY_ORDER", 3)
	viper.SetDefault("FORECAST_YEARLY_ORDER", 10)
	viper.SetDefault("FORECAST_YEARLY_MIN_SPAN_DAYS", 365)
	viper.SetDefault("FORECAST_REGULARIZATION", 0.01)

	viper.SetDefault("ANALYTICS_PROFILE", "coverage")
	viper.SetDefault("ANALYTICS_CURRENCY_SYMBOL", "₽")

	viper.SetDefault("AUTH_JWT_SECRET", "change-me")
	viper.SetDefault("AUTH_ISSUER", "stockcast")
	viper.SetDefault("AUTH_TOKEN_TTL_HOURS", 24)

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "uploads")

	viper.SetDefault("MAIL_ENABLED", false)
	viper.SetDefault("MAIL_PORT", 465)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    viper.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		App: AppConfig{
			UploadDir: viper.GetString("APP_UPLOAD_DIR"),
			DataDir:   viper.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
		},
		Ingest: IngestConfig{
			MinHistoryDays:     viper.GetInt("INGEST_MIN_HISTORY_DAYS"),
			DatePolicy:         viper.GetString("INGEST_DATE_POLICY"),
			DefaultStock:       viper.GetFloat64("INGEST_DEFAULT_STOCK"),
			DefaultStockFixed:  viper.GetFloat64("INGEST_DEFAULT_STOCK_FIXED"),
			DefaultUnitPrice:   viper.GetFloat64("INGEST_DEFAULT_UNIT_PRICE"),
			DefaultProductName: viper.GetString("INGEST_DEFAULT_PRODUCT_NAME"),
		},
		Forecast: ForecastConfig{
			HorizonDays:       viper.GetInt("FORECAST_HORIZON_DAYS"),
			MinPoints:         viper.GetInt("FORECAST_MIN_POINTS"),
			Workers:           viper.GetInt("FORECAST_WORKERS"),
			FitTimeoutSeconds: viper.GetInt("FORECAST_FIT_TIMEOUT_SECONDS"),
			IntervalWidth:     viper.GetFloat64("FORECAST_INTERVAL_WIDTH"),
			WeeklyOrder:       viper.GetInt("FORECAST_WEEKLY_ORDER"),
			YearlyOrder:       viper.GetInt("FORECAST_YEARLY_ORDER"),
			YearlyMinSpanDays: viper.GetInt("FORECAST_YEARLY_MIN_SPAN_DAYS"),
			Regularization:    viper.GetFloat64("FORECAST_REGULARIZATION"),
		},
		Analytics: AnalyticsConfig{
			Profile:               viper.GetString("ANALYTICS_PROFILE"),
			DemandWindowDays:      optionalInt("ANALYTICS_DEMAND_WINDOW_DAYS"),
			HistoryWindowDays:     optionalInt("ANALYTICS_HISTORY_WINDOW_DAYS"),
			CriticalCoverDays:     optionalFloat("ANALYTICS_CRITICAL_COVER_DAYS"),
			ExcessCoverDays:       optionalFloat("ANALYTICS_EXCESS_COVER_DAYS"),
			CriticalStockQty:      optionalFloat("ANALYTICS_CRITICAL_STOCK_QTY"),
			ExcessStockQty:        optionalFloat("ANALYTICS_EXCESS_STOCK_QTY"),
			TargetCoverDays:       optionalFloat("ANALYTICS_TARGET_COVER_DAYS"),
			ReorderMultiplierDays: optionalFloat("ANALYTICS_REORDER_MULTIPLIER_DAYS"),
			UrgentDays:            optionalInt("ANALYTICS_URGENT_DAYS"),
			LeadTimeDays:          optionalFloat("ANALYTICS_LEAD_TIME_DAYS"),
			SafetyStockDays:       optionalFloat("ANALYTICS_SAFETY_STOCK_DAYS"),
			TopN:                  optionalInt("ANALYTICS_TOP_N"),
			CurrencySymbol:        viper.GetString("ANALYTICS_CURRENCY_SYMBOL"),
		},
		Auth: AuthConfig{
			JWTSecret:     viper.GetString("AUTH_JWT_SECRET"),
			Issuer:        viper.GetString("AUTH_ISSUER"),
			TokenTTLHours: viper.GetInt("AUTH_TOKEN_TTL_HOURS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Mail: MailConfig{
			Enabled:  viper.GetBool("MAIL_ENABLED"),
			Host:     viper.GetString("MAIL_HOST"),
			Port:     viper.GetInt("MAIL_PORT"),
			Username: viper.GetString("MAIL_USERNAME"),
			Password: viper.GetString("MAIL_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

// FitTimeout returns the per-product model fit bound.
func (c ForecastConfig) FitTimeout() time.Duration {
	if c.FitTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.FitTimeoutSeconds) * time.Second
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}

// optionalInt returns nil when key is absent from the environment and defaults.
func optionalInt(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetInt(key)
	return &v
}

func optionalFloat(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}
