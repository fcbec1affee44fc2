package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Ledger   LedgerConfig
	Sizing   SizingConfig
	Forecast ForecastConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// SourceConfig selects the read-only transaction log
type SourceConfig struct {
	Driver        string // sqlite3, postgres or pgx
	URL           string // pgx connection string
	SQLitePath    string
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	Table         string
	MaxConcurrent int64
}

type LedgerConfig struct {
	ShortfallPolicy string
}

type SizingConfig struct {
	MaxMultiplier        int
	ReductionRate        float64
	TargetOrderMinutes   float64
	TargetRestockMinutes float64
}

type ForecastConfig struct {
	Backend            string
	Horizon            int
	Alpha              float64
	Beta               float64
	URL                string
	TimeoutSeconds     int
	BreakerMaxFailures uint32
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	LedgerTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket holding log snapshots and reports
type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Region      string
	UseSSL      bool
	DownloadDir string
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = build(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("SOURCE_DRIVER", "sqlite3")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SOURCE_SQLITE_PATH", "inventory_queue.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "inventory_queue")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SOURCE_TABLE", "inventory_queue_records")
	v.SetDefault("SOURCE_MAX_CONCURRENT", 10)

	v.SetDefault("LEDGER_SHORTFALL_POLICY", "decline_whole")

	v.SetDefault("SIZING_MAX_MULTIPLIER", 10)
	v.SetDefault("SIZING_REDUCTION_RATE", 0)
	v.SetDefault("SIZING_TARGET_ORDER_MINUTES", 0)
	v.SetDefault("SIZING_TARGET_RESTOCK_MINUTES", 0)

	v.SetDefault("FORECAST_BACKEND", "holt")
	v.SetDefault("FORECAST_HORIZON", 3)
	v.SetDefault("FORECAST_ALPHA", 0.5)
	v.SetDefault("FORECAST_BETA", 0.3)
	v.SetDefault("FORECAST_URL", "")
	v.SetDefault("FORECAST_TIMEOUT_SECONDS", 10)
	v.SetDefault("FORECAST_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("FORECAST_BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("FORECAST_BREAKER_INTERVAL", "0s")
	v.SetDefault("FORECAST_BREAKER_TIMEOUT", "30s")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_LEDGER_TTL_SECONDS", 60)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_DOWNLOAD_DIR", "./data/snapshots")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func build(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Source: SourceConfig{
			Driver:        v.GetString("SOURCE_DRIVER"),
			URL:           v.GetString("DATABASE_URL"),
			SQLitePath:    v.GetString("SOURCE_SQLITE_PATH"),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			DBName:        v.GetString("DB_NAME"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			Table:         v.GetString("SOURCE_TABLE"),
			MaxConcurrent: v.GetInt64("SOURCE_MAX_CONCURRENT"),
		},
		Ledger: LedgerConfig{
			ShortfallPolicy: v.GetString("LEDGER_SHORTFALL_POLICY"),
		},
		Sizing: SizingConfig{
			MaxMultiplier:        v.GetInt("SIZING_MAX_MULTIPLIER"),
			ReductionRate:        v.GetFloat64("SIZING_REDUCTION_RATE"),
			TargetOrderMinutes:   v.GetFloat64("SIZING_TARGET_ORDER_MINUTES"),
			TargetRestockMinutes: v.GetFloat64("SIZING_TARGET_RESTOCK_MINUTES"),
		},
		Forecast: ForecastConfig{
			Backend:            v.GetString("FORECAST_BACKEND"),
			Horizon:            v.GetInt("FORECAST_HORIZON"),
			Alpha:              v.GetFloat64("FORECAST_ALPHA"),
			Beta:               v.GetFloat64("FORECAST_BETA"),
			URL:                v.GetString("FORECAST_URL"),
			TimeoutSeconds:     v.GetInt("FORECAST_TIMEOUT_SECONDS"),
			BreakerMaxFailures: v.GetUint32("FORECAST_BREAKER_MAX_FAILURES"),
			BreakerMaxRequests: v.GetUint32("FORECAST_BREAKER_MAX_REQUESTS"),
			BreakerInterval:    v.GetDuration("FORECAST_BREAKER_INTERVAL"),
			BreakerTimeout:     v.GetDuration("FORECAST_BREAKER_TIMEOUT"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			LedgerTTLSeconds: v.GetInt("CACHE_LEDGER_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:    v.GetString("STORAGE_ENDPOINT"),
			AccessKey:   v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:   v.GetString("STORAGE_SECRET_KEY"),
			Bucket:      v.GetString("STORAGE_BUCKET"),
			Region:      v.GetString("STORAGE_REGION"),
			UseSSL:      v.GetBool("STORAGE_USE_SSL"),
			DownloadDir: v.GetString("STORAGE_DOWNLOAD_DIR"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}
