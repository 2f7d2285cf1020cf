package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	News     NewsConfig
	Sweep    SweepConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	CatalogFile string `envconfig:"CATALOG_FILE"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8081"`
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
}

// StoreConfig selects the sentiment record store
type StoreConfig struct {
	Driver     string `envconfig:"STORE_DRIVER" default:"postgres"`
	BadgerPath string `envconfig:"BADGER_PATH" default:"./data/sentiment"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `envconfig:"DB_HOST" default:"postgres"`
	Port           string `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"trader"`
	Password       string `envconfig:"DB_PASSWORD" default:"trader5"`
	DBName         string `envconfig:"DB_NAME" default:"trading_platform"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"file://./db/migrations"`
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Enabled       bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	Topic         string   `envconfig:"KAFKA_TOPIC" default:"sentiment-events"`
	RequestsTopic string   `envconfig:"KAFKA_REQUESTS_TOPIC" default:"sentiment.analyze-requests"`
	ConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"sentiment-service"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled     bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Host        string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port        string        `envconfig:"REDIS_PORT" default:"6379"`
	Password    string        `envconfig:"REDIS_PASSWORD"`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	SnapshotTTL time.Duration `envconfig:"SNAPSHOT_CACHE_TTL" default:"5m"`
}

// NewsConfig holds the Google News RSS client configuration
type NewsConfig struct {
	BaseURL           string        `envconfig:"NEWS_BASE_URL" default:"https://news.google.com"`
	Language          string        `envconfig:"NEWS_LANGUAGE" default:"en-IN"`
	Country           string        `envconfig:"NEWS_COUNTRY" default:"IN"`
	MaxResults        int           `envconfig:"NEWS_MAX_RESULTS" default:"20"`
	Timeout           time.Duration `envconfig:"NEWS_TIMEOUT" default:"10s"`
	RequestsPerMinute int           `envconfig:"NEWS_REQUESTS_PER_MINUTE" default:"30"`
}

// SweepConfig holds the background sweep schedule
type SweepConfig struct {
	Enabled           bool          `envconfig:"SWEEP_ENABLED" default:"true"`
	Warmup            time.Duration `envconfig:"SWEEP_WARMUP" default:"5s"`
	Interval          time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	SymbolPause       time.Duration `envconfig:"SWEEP_SYMBOL_PAUSE" default:"3s"`
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"168h"`
	RetentionMaxAge   time.Duration `envconfig:"RETENTION_MAX_AGE" default:"720h"`
}

// Load reads configuration from the environment, after applying a .env file if one exists
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	switch cfg.Store.Driver {
	case "postgres", "badger":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}

	return &cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}
