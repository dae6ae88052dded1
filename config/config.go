package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, the Postgres store, the Redis cache, and the report ingestion job.
//
// Example YAML/ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=spimex
//	POSTGRES_SSLMODE=disable
//	REDIS_ADDR=localhost:6379
//	REDIS_DB=0
//	REPORTS_BASE_URL=https://spimex.com/upload/reports/oil_xls
//	REPORTS_DIR=./data/reports
//	FETCH_CONCURRENCY=5
//	CACHE_BOUNDARY_HOUR=14
//	CACHE_BOUNDARY_MINUTE=11
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Redis    RedisConfig    // Redis cache settings
	Ingest   IngestConfig   // Report fetching and parsing settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql to connect
}

// RedisConfig defines connection details for the Redis cache.
//
// The cache is optional: if Redis is unreachable on startup the service
// runs with caching disabled rather than failing.
type RedisConfig struct {
	Addr     string // host:port, e.g. "localhost:6379"
	Password string
	DB       int // a dedicated DB is expected: the daily invalidation flushes it entirely
}

// IngestConfig defines settings for the daily report ingestion job.
//
// Fields:
//   - BaseURL: URL prefix under which the exchange publishes daily .xls reports.
//   - Dir: local directory where fetched report artifacts are written.
//   - Concurrency: maximum number of in-flight report downloads.
//   - BoundaryHour/BoundaryMinute: daily wall-clock time after which cached
//     query results are considered stale (the exchange publishes around this time).
type IngestConfig struct {
	BaseURL        string
	Dir            string
	Concurrency    int
	BoundaryHour   int
	BoundaryMinute int
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "spimex")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("REPORTS_BASE_URL", "https://spimex.com/upload/reports/oil_xls")
	viper.SetDefault("REPORTS_DIR", "./data/reports")
	viper.SetDefault("FETCH_CONCURRENCY", 5)
	viper.SetDefault("CACHE_BOUNDARY_HOUR", 14)
	viper.SetDefault("CACHE_BOUNDARY_MINUTE", 11)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Ingest: IngestConfig{
			BaseURL:        viper.GetString("REPORTS_BASE_URL"),
			Dir:            viper.GetString("REPORTS_DIR"),
			Concurrency:    viper.GetInt("FETCH_CONCURRENCY"),
			BoundaryHour:   viper.GetInt("CACHE_BOUNDARY_HOUR"),
			BoundaryMinute: viper.GetInt("CACHE_BOUNDARY_MINUTE"),
		},
	}

	// Construct Postgres DSN (used by database/sql)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	// Validate critical fields
	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Ingest.BaseURL == "" {
		missing = append(missing, "REPORTS_BASE_URL")
	}
	if AppConfig.Ingest.Concurrency <= 0 {
		missing = append(missing, "FETCH_CONCURRENCY")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
