package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// Timezone is the single reference zone for recurrence math. Occurrences
	// are calendar days in this zone, not instants in UTC.
	Timezone *time.Location

	// SnapshotRetention is the max snapshots kept per user; oldest beyond
	// this are evicted on create.
	SnapshotRetention int

	// HabitReplenishCron is a standard 5-field cron spec for the habit
	// replenishment sweep.
	HabitReplenishCron string
	// HabitPendingTarget is how many pending instances an active habit
	// should have after replenishment.
	HabitPendingTarget int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		SnapshotRetention:    getenvInt("SNAPSHOT_RETENTION", 10),
		HabitReplenishCron:   getenv("HABIT_REPLENISH_CRON", "0 2 * * *"),
		HabitPendingTarget:   getenvInt("HABIT_PENDING_TARGET", 20),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")

	tz := getenv("TIMEZONE", "Asia/Shanghai")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		panic("invalid TIMEZONE: " + tz)
	}
	cfg.Timezone = loc

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
