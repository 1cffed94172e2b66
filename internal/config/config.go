package config

import (
	"os"
	"strconv"
	"strings"
)

// Supported values for DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds the registry's relational store settings.
// Driver selects the backend; Path is used by SQLite, the remaining fields by PostgreSQL.
type DatabaseConfig struct {
	Driver             string
	Path               string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig holds file store settings.
type StorageConfig struct {
	// Root is the directory holding original uploads; signatures live in Root/signatures.
	Root string
	// PathPrefix is prepended to the filename to build the informational storage_path column.
	PathPrefix string
	// Fsync forces uploads to be flushed to disk before they are renamed into place.
	Fsync bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Host              string
	Port              string
	LogLevel          string
	Timezone          string
	CORSAllowOrigins  string
	FrameAncestors    string
	MaxUploadMB       int
	ReconcileSchedule string
	Database          DatabaseConfig
	Storage           StorageConfig
}

// ListenAddr is the address the HTTP server binds to. An empty Host binds every interface.
func (c *AppConfig) ListenAddr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Host:              getEnv("APP_HOST", ""),
		Port:              getEnv("PORT", "5001"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Timezone:          getEnv("TZ_NAME", "UTC"),
		CORSAllowOrigins:  getEnv("CORS_ALLOW_ORIGINS", "*"),
		FrameAncestors:    getEnv("FRAME_ANCESTORS", "'self' http://localhost:* https://localhost:*"),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 50),
		ReconcileSchedule: getEnvAllowEmpty("RECONCILE_SCHEDULE", "@every 10m"),
		Database: DatabaseConfig{
			Driver:             strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:               getEnv("DB_PATH", "./db/documents.db"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Root:       getEnv("STORAGE_ROOT", "./data"),
			PathPrefix: getEnv("STORAGE_PATH_PREFIX", "//localhost/data/"),
			Fsync:      getEnvBool("STORAGE_FSYNC", true),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
