package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	DBDriver string // "sqlite3" or "postgres"
	DBDSN    string
	BaseURL  string // used for returning absolute short URLs
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads configuration from a .env file (if present) and the
// environment. Real environment variables win over .env values.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     getint("PORT", 8080),
		DBDriver: getenv("DB_DRIVER", "sqlite3"),
		DBDSN:    getenv("DB_DSN", "file:shortlinks.db?_foreign_keys=on"),
		BaseURL:  getenv("BASE_URL", ""),
	}
}
