// Package config loads runtime configuration from the environment.
// Connection parameters fall back to conventional local-development
// values, so the service runs against a default local PostgreSQL
// without any configuration at all.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the ingest service.
type Config struct {
	Port                string
	DatabaseURL         string // assembled DSN, DATABASE_URL takes priority
	RedisURL            string // optional; empty disables event publishing
	AllowedEmployerIDs  []string
	FingerprintMode     string // "composite" or "source-id"
	IngestIntervalHours int
}

// Load reads environment variables (and a .env file, if present) and
// returns a validated Config.
func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	interval := 6
	if s := os.Getenv("INGEST_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("INGEST_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	mode := os.Getenv("FINGERPRINT_MODE")
	switch mode {
	case "":
		mode = "composite"
	case "composite", "source-id":
	default:
		return nil, fmt.Errorf("FINGERPRINT_MODE must be \"composite\" or \"source-id\", got %q", mode)
	}

	port := os.Getenv("INGEST_PORT")
	if port == "" {
		port = "8082"
	}

	return &Config{
		Port:                port,
		DatabaseURL:         databaseURL(),
		RedisURL:            os.Getenv("REDIS_URL"),
		AllowedEmployerIDs:  splitList(os.Getenv("ALLOWED_EMPLOYER_IDS")),
		FingerprintMode:     mode,
		IngestIntervalHours: interval,
	}, nil
}

// databaseURL assembles the PostgreSQL DSN. DATABASE_URL wins when
// set; otherwise the DSN is built from the standard PG* variables
// with local-development defaults.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := envOr("PGHOST", "localhost")
	dbPort := envOr("PGPORT", "5432")
	database := envOr("PGDATABASE", "postgres")
	user := envOr("PGUSER", "postgres")
	password := os.Getenv("PGPASSWORD")

	userinfo := url.User(user)
	if password != "" {
		userinfo = url.UserPassword(user, password)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   userinfo,
		Host:   fmt.Sprintf("%s:%s", host, dbPort),
		Path:   "/" + database,
	}

	log.Printf("[config] DATABASE_URL not set, using %s:%s/%s", host, dbPort, database)
	return dsn.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
