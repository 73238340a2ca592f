package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv         string
	LogLevel       slog.Level
	ApiServicePort string

	PostgreSQLHost     string
	PostgreSQLPort     int64
	PostgreSQLUser     string
	PostgreSQLPassword string
	PostgreSQLDatabase string

	JWTSecret             string
	JWTIssuer             string
	JWTAudience           string
	AccessTokenExpiration int64 // Access token lifetime in seconds
	RefreshTokenTTLDays   int64 // Refresh token lifetime in days (doubled by "remember me")
	RotationEnabled       bool
	SweepIntervalHours    int64
	ResetTokenTTLHours    int64

	RedisHost     string
	RedisPort     int64
	RedisPassword string
	RedisDatabase int64

	LoginMaxAttempts       int64 // Failed logins allowed per window before throttling
	LoginAttemptWindowSecs int64
	ShutdownTimeoutSeconds int64
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),   // Default development
		LogLevel:       getLogLevel(),                      // Default INFO
		ApiServicePort: getEnv("API_SERVICE_PORT", "8080"), // Default 8080

		PostgreSQLHost:     getEnv("POSTGRESQL_HOST", "db"),               // Default db
		PostgreSQLPort:     getEnvAsInt64("POSTGRESQL_PORT", 5432),        // Default 5432
		PostgreSQLUser:     getEnv("POSTGRESQL_USER", "bsm_user"),         // Default user
		PostgreSQLPassword: getEnv("POSTGRESQL_PASSWORD", "bsm_password"), // Default password
		PostgreSQLDatabase: getEnv("POSTGRESQL_DATABASE", "bsm_db"),       // Default database name

		JWTSecret:             getEnv("JWT_SECRET", "bsm_secret"),              // Default secret key
		JWTIssuer:             getEnv("JWT_ISSUER", "rising-bsm"),              // Default issuer
		JWTAudience:           getEnv("JWT_AUDIENCE", "rising-bsm-api"),        // Default audience
		AccessTokenExpiration: getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 900),   // Default 15 minutes
		RefreshTokenTTLDays:   getEnvAsInt64("REFRESH_TOKEN_TTL_DAYS", 7),      // Default 7 days
		RotationEnabled:       getEnvAsBool("TOKEN_ROTATION_ENABLED", true),    // Default on
		SweepIntervalHours:    getEnvAsInt64("TOKEN_SWEEP_INTERVAL_HOURS", 24), // Default 24 hours
		ResetTokenTTLHours:    getEnvAsInt64("RESET_TOKEN_TTL_HOURS", 24),      // Default 24 hours

		RedisHost:     getEnv("REDIS_HOST", "redis"),      // Default redis
		RedisPort:     getEnvAsInt64("REDIS_PORT", 6379),  // Default 6379
		RedisPassword: getEnv("REDIS_PASSWORD", ""),       // Default empty
		RedisDatabase: getEnvAsInt64("REDIS_DATABASE", 0), // Default 0

		LoginMaxAttempts:       getEnvAsInt64("LOGIN_MAX_ATTEMPTS", 10),    // Default 10 failures
		LoginAttemptWindowSecs: getEnvAsInt64("LOGIN_ATTEMPT_WINDOW", 900), // Default 15 minutes
		ShutdownTimeoutSeconds: getEnvAsInt64("SHUTDOWN_TIMEOUT", 15),      // Default 15 seconds
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
