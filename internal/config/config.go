package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultSourceURL = "https://services1.arcgis.com/j8dqo2DJE7mVUBU1/arcgis/rest/services/Police_Incident_Data_2024/FeatureServer/0/query?outFields=*&where=1%3D1&f=geojson"

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL             string
	SourceTimeout         time.Duration
	SourceMaxRetryElapsed time.Duration

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	BatchSize   int

	IngestInterval time.Duration
	RawOutputPath  string
	CSVOutputPath  string
	SpoolDir       string

	// Optional Kafka sink; disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string

	// Dashboard summary cache. Redis is used when RedisAddr is set,
	// otherwise an in-process LRU of CacheSize entries.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheSize     int

	HTTPAddr        string
	DashboardAddr   string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether the Kafka sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	retryElapsed, err := parsePositiveDuration("SOURCE_MAX_RETRY_ELAPSED", "2m")
	if err != nil {
		return nil, err
	}
	interval, err := parsePositiveDuration("INGEST_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseNonNegativeInt("CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceURL:             sharedcfg.EnvOrDefault("SOURCE_URL", defaultSourceURL),
		SourceTimeout:         sourceTimeout,
		SourceMaxRetryElapsed: retryElapsed,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  sharedcfg.EnvOrDefault("SQLITE_PATH", "data/police_incidents.db"),
		BatchSize:   batchSize,

		IngestInterval: interval,
		RawOutputPath:  os.Getenv("RAW_OUTPUT_PATH"),
		CSVOutputPath:  os.Getenv("CSV_OUTPUT_PATH"),
		SpoolDir:       sharedcfg.EnvOrDefault("SPOOL_DIR", "data/spool"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "police-incidents"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,
		CacheSize:     cacheSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		DashboardAddr:   sharedcfg.EnvOrDefault("DASHBOARD_ADDR", ":8081"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SourceURL == "" {
		return nil, errors.New("SOURCE_URL is required")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want postgres or sqlite", cfg.StoreDriver)
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
