package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Host           string   // Raw HOST env (e.g. https://api.moodlog.app)
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.
	TrustProxy     bool     // honor X-Forwarded-For when behind a proxy

	DatabaseDriver string // postgres or sqlite
	PostgresURI    string
	SQLitePath     string
	RedisURI       string
	MongoURI       string // optional; pipeline run log is disabled when empty
	MongoDatabase  string

	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	OpenAIMemoryModel     string
	OpenAIMaxOutputTokens int64

	ContextCacheTTL           time.Duration
	JournalSubmissionsPerHour int
	RunLogRetentionDays       int
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	model := getEnv("OPENAI_MODEL", "gpt-4o-mini")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Host:           getEnv("HOST", "http://localhost:8080"),
		AllowedOrigins: allowedOrigins,
		Environment:    env,
		TrustProxy:     getEnvBool("TRUST_PROXY", false),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		PostgresURI:    getEnv("POSTGRES_URI", getEnv("DATABASE_URL", "postgres://localhost:5432/moodlog?sslmode=disable")),
		SQLitePath:     getEnv("SQLITE_PATH", "moodlog.db"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:       getEnv("MONGODB_URI", ""),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "moodlog"),

		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:           model,
		OpenAIMemoryModel:     getEnv("OPENAI_MEMORY_MODEL", model),
		OpenAIMaxOutputTokens: int64(getEnvInt("OPENAI_MAX_OUTPUT_TOKENS", 2500)),

		ContextCacheTTL:           getEnvDuration("CONTEXT_CACHE_TTL", 10*time.Minute),
		JournalSubmissionsPerHour: getEnvInt("JOURNAL_SUBMISSIONS_PER_HOUR", 30),
		RunLogRetentionDays:       getEnvInt("RUN_LOG_RETENTION_DAYS", 30),
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.PostgresURI == "" {
			return fmt.Errorf("POSTGRES_URI is required when DATABASE_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", c.DatabaseDriver)
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.JournalSubmissionsPerHour < 0 {
		return fmt.Errorf("JOURNAL_SUBMISSIONS_PER_HOUR must be >= 0")
	}
	return nil
}

// DatabaseDSN returns the data source for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.PostgresURI
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
