package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the environment value for key, or fallback when
// unset or empty.
func EnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns the parsed environment value for key, or fallback on
// unset or unparsable values.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration returns the parsed environment value for key, or
// fallback on unset or unparsable values.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// EnvBool returns the parsed environment value for key, or fallback on
// unset or unparsable values.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// FromEnv layers environment variables over the defaults. Flags are
// applied on top by the caller.
func FromEnv() *Config {
	cfg := DefaultConfig()

	cfg.AdaptersFile = EnvString("CRAWLER_ADAPTERS_FILE", cfg.AdaptersFile)
	if v := os.Getenv("CRAWLER_SOURCES"); v != "" {
		cfg.Sources = splitList(v)
	}
	cfg.DatabaseURL = EnvString("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = EnvString("REDIS_URL", cfg.RedisURL)
	cfg.OutputFile = EnvString("CRAWLER_OUTPUT_FILE", cfg.OutputFile)
	cfg.DryRun = EnvBool("CRAWLER_DRY_RUN", cfg.DryRun)
	cfg.Parallelism = EnvInt("CRAWLER_PARALLELISM", cfg.Parallelism)
	cfg.NavigationTimeout = EnvDuration("CRAWLER_NAVIGATION_TIMEOUT", cfg.NavigationTimeout)
	cfg.RunDeadline = EnvDuration("CRAWLER_RUN_DEADLINE", cfg.RunDeadline)
	cfg.MaxRetries = EnvInt("CRAWLER_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryBackoff = EnvDuration("CRAWLER_RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.RetryBackoffMax = EnvDuration("CRAWLER_RETRY_BACKOFF_MAX", cfg.RetryBackoffMax)
	cfg.RetryJitter = EnvDuration("CRAWLER_RETRY_JITTER", cfg.RetryJitter)
	cfg.UserAgent = EnvString("CRAWLER_USER_AGENT", cfg.UserAgent)
	cfg.Headless = EnvBool("CRAWLER_HEADLESS", cfg.Headless)
	cfg.ScreenshotDir = EnvString("CRAWLER_SCREENSHOT_DIR", cfg.ScreenshotDir)
	cfg.ScrollSteps = EnvInt("CRAWLER_SCROLL_STEPS", cfg.ScrollSteps)
	cfg.SeenTTL = EnvDuration("CRAWLER_SEEN_TTL", cfg.SeenTTL)
	cfg.MetricsAddr = EnvString("CRAWLER_METRICS_ADDR", cfg.MetricsAddr)
	cfg.Schedule = EnvString("CRAWLER_SCHEDULE", cfg.Schedule)
	cfg.Verbose = EnvBool("CRAWLER_VERBOSE", cfg.Verbose)

	return cfg
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
