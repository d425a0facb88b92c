// Package config holds the crawler's runtime configuration.
package config

import (
	"fmt"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	AdaptersFile string
	Sources      []string

	DatabaseURL string
	RedisURL    string
	OutputFile  string
	DryRun      bool

	Parallelism       int
	NavigationTimeout time.Duration
	RunDeadline       time.Duration

	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	RetryJitter     time.Duration

	UserAgent     string
	Headless      bool
	ScreenshotDir string
	ScrollSteps   int

	SeenTTL     time.Duration
	MetricsAddr string
	Schedule    string
	Verbose     bool
}

// DefaultConfig returns the defaults for a one-shot local run.
func DefaultConfig() *Config {
	return &Config{
		OutputFile:        "output/jobs.jsonl",
		Parallelism:       2,
		NavigationTimeout: 30 * time.Second,
		RunDeadline:       45 * time.Minute,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		RetryBackoffMax:   8 * time.Second,
		RetryJitter:       250 * time.Millisecond,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headless:          true,
		ScreenshotDir:     "output/screenshots",
		ScrollSteps:       8,
		SeenTTL:           30 * 24 * time.Hour,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.RunDeadline <= 0 {
		return fmt.Errorf("run deadline must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RetryJitter < 0 {
		return fmt.Errorf("retry jitter cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ScrollSteps <= 0 {
		return fmt.Errorf("scroll steps must be positive")
	}
	if c.SeenTTL < 0 {
		return fmt.Errorf("seen TTL cannot be negative")
	}
	if !c.DryRun && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required unless running with -dry-run")
	}
	if c.DryRun && c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty in dry-run mode")
	}
	return nil
}
