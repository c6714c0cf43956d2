package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	ResetDB     bool

	// CustomerWorkoutLimit is the number of active self-created workouts a
	// customer-only user may hold.
	CustomerWorkoutLimit int

	// GateAPIURL is the backend base URL used by the gate client.
	GateAPIURL string
	// GateRefreshInterval is how often a mounted gate re-checks the limit.
	GateRefreshInterval time.Duration
}

// Load builds Config from environment with sensible defaults. Values in .env
// and .env.local are loaded first when present.
func Load() *Config {
	_ = godotenv.Load(".env", ".env.local")

	return &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		MySQLDSN:             getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/coachgate?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisPass:            os.Getenv("REDIS_PASSWORD"),
		JWTSecret:            getEnv("JWT_SECRET", "change-me"),
		SwaggerHost:          os.Getenv("SWAGGER_HOST"),
		ResetDB:              getEnv("RESET_DB", "false") == "true",
		CustomerWorkoutLimit: getEnvInt("CUSTOMER_WORKOUT_LIMIT", 3),
		GateAPIURL:           getEnv("GATE_API_URL", "http://localhost:8080"),
		GateRefreshInterval:  getEnvDuration("GATE_REFRESH_INTERVAL", 5*time.Minute),
	}
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
