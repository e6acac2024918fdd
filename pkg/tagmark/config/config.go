package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the server configuration read from the environment
type Config struct {
	Env       string
	Port      string
	DBDriver  string // "sqlite" or "postgres"
	DBPath    string // sqlite file path
	DBDSN     string // postgres connection string
	JWTSecret string
	PageSize  int
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() *Config {
	// A missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	return &Config{
		Env:       getEnv("TAGMARK_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		DBDriver:  getEnv("TAGMARK_DB_DRIVER", "sqlite"),
		DBPath:    getEnv("TAGMARK_DB_PATH", "tagmark.db"),
		DBDSN:     getEnv("TAGMARK_DB_DSN", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),
		PageSize:  getEnvInt("TAGMARK_PAGE_SIZE", 25),
	}
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
