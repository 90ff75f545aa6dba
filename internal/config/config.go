package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	FormURL       string

	StorageBackend string // "memory", "file", "firestore" or "postgres"
	DataDir        string // file backend
	GCPProjectID   string // firestore backend
	PostgresDSN    string // postgres backend

	HTTPPort      string
	ReportWeekday time.Weekday
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing env %s", key)
	}
	return v
}

func getWeekdayEnv(key string, def time.Weekday) time.Weekday {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 6 {
		log.Fatalf("%s must be a weekday number 0 (Sunday) to 6, got %q", key, v)
	}
	return time.Weekday(n)
}

// Load reads all env vars and builds the config. A .env file next to the
// binary is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: mustEnv("HYDROLOG_TELEGRAM_TOKEN"),
		FormURL:       mustEnv("HYDROLOG_FORM_URL"),

		StorageBackend: getEnv("HYDROLOG_STORAGE_BACKEND", "memory"),
		DataDir:        getEnv("HYDROLOG_DATA_DIR", "."),
		GCPProjectID:   getEnv("HYDROLOG_GCP_PROJECT", ""),
		PostgresDSN:    getEnv("HYDROLOG_POSTGRES_DSN", ""),

		HTTPPort:      getEnv("HYDROLOG_HTTP_PORT", "8080"),
		ReportWeekday: getWeekdayEnv("HYDROLOG_REPORT_WEEKDAY", time.Sunday),
	}

	switch cfg.StorageBackend {
	case "memory", "file":
	case "firestore":
		if cfg.GCPProjectID == "" {
			log.Fatal("HYDROLOG_GCP_PROJECT must be set for the firestore backend")
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			log.Fatal("HYDROLOG_POSTGRES_DSN must be set for the postgres backend")
		}
	default:
		log.Fatalf("unknown storage backend %q", cfg.StorageBackend)
	}

	return cfg
}
