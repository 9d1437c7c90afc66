package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	Store     StoreConfig
	Ephemeris EphemerisConfig
	Report    ReportConfig
}

// StoreConfig configures the platform purchase API client.
type StoreConfig struct {
	BaseURL       string
	PublicKeyPEM  string
	Issuer        string
	Audience      string
	PollInterval  time.Duration
	FinishTimeout time.Duration
}

// EphemerisConfig configures the external chart calculation service.
type EphemerisConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ReportConfig configures the external report generation API.
type ReportConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	MinChars int
	MaxChars int
	Timeout  time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "astroledger"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "astroledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		Store: StoreConfig{
			BaseURL:       getenv("STORE_BASE_URL", ""),
			PublicKeyPEM:  getenv("STORE_PUBLIC_KEY_PEM", ""),
			Issuer:        getenv("STORE_ISSUER", "appstore"),
			Audience:      getenv("STORE_AUDIENCE", "astroledger"),
			PollInterval:  getenvDuration("STORE_POLL_INTERVAL", 15*time.Second),
			FinishTimeout: getenvDuration("STORE_FINISH_TIMEOUT", 10*time.Second),
		},
		Ephemeris: EphemerisConfig{
			BaseURL: getenv("EPHEMERIS_BASE_URL", ""),
			Timeout: getenvDuration("EPHEMERIS_TIMEOUT", 10*time.Second),
		},
		Report: ReportConfig{
			BaseURL:  getenv("REPORT_API_BASE_URL", ""),
			APIKey:   getenv("REPORT_API_KEY", ""),
			Model:    getenv("REPORT_API_MODEL", "gpt-4o-mini"),
			MinChars: getenvInt("REPORT_MIN_CHARS", 1200),
			MaxChars: getenvInt("REPORT_MAX_CHARS", 20000),
			Timeout:  getenvDuration("REPORT_API_TIMEOUT", 90*time.Second),
		},
	}
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
