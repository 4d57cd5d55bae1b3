package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Session tokens
	SessionSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// History storage
	HistoryBackend string
	RedisURL       string
	DatabaseURL    string
	MigrationsDir  string

	// Limits
	GenerateRatePerMin int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		SessionSecret: mustGetEnv("SESSION_SECRET"),
		// A missing key is reported on the first model call, not here.
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		HistoryBackend:       strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", "redis")),
		RedisURL:             getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		GenerateRatePerMin:   getEnvAsIntOrDefault("GENERATE_RATE_LIMIT", 20),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Validate reports combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when HISTORY_BACKEND=redis")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when HISTORY_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported HISTORY_BACKEND %q (want redis or postgres)", c.HistoryBackend)
	}
	if c.GeminiConcurrentReqs < 1 {
		return fmt.Errorf("GEMINI_CONCURRENT_REQUESTS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
