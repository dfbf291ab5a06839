package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	ServerPort  string
	DBDriver    string
	DatabaseDSN string
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	CORSOrigins []string
	LogLevel    string
	LogFormat   string
	SwaggerHost string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	return &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    driver,
		DatabaseDSN: getEnv("DB_DSN", defaultDSN(driver)),
		ResetDB:     getEnvBool("RESET_DB", false),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		AccessTTL:   getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		RefreshTTL:  getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.DBDriver != DriverMySQL && c.DBDriver != DriverPostgres {
		return errors.New("DB_DRIVER must be mysql or postgres")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AppEnv == "production" && c.JWTSecret == "change-me" {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

func defaultDSN(driver string) string {
	if driver == DriverPostgres {
		return "host=localhost user=postgres password=postgres dbname=space_management port=5432 sslmode=disable"
	}
	return "user:password@tcp(localhost:3306)/space_management?charset=utf8mb4&parseTime=True&loc=Local"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
