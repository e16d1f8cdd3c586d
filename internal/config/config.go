// Package config handles application configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load.
const (
	configPathEnv  = "ITNEWS_CONFIG"
	tokenEnv       = "TELEGRAM_TOKEN"
	chatEnv        = "TELEGRAM_CHAT"
	reportTokenEnv = "REPORT_TELEGRAM_TOKEN"
	reportChatEnv  = "REPORT_CHAT"
	dbPathEnv      = "DATABASE_PATH"
	dataDirEnv     = "DATA_DIR"
	logLevelEnv    = "LOG_LEVEL"
)

// Config holds the application configuration.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	TelegramChat  string `yaml:"telegram_chat"`
	ReportToken   string `yaml:"report_token"`
	ReportChat    string `yaml:"report_chat"`

	DatabasePath string `yaml:"database_path"`
	DataDir      string `yaml:"data_dir"`
	LogLevel     string `yaml:"log_level"`
	Timezone     string `yaml:"timezone"`

	Sources        []string `yaml:"sources"`
	TrustedDomains []string `yaml:"trusted_domains"`
	BadKeywords    []string `yaml:"bad_keywords"`

	FetchLimit   int `yaml:"fetch_limit"`
	MaxAgeDays   int `yaml:"max_age_days"`
	TopPerSource int `yaml:"top_per_source"`
	PerSourceCap int `yaml:"per_source_cap"`
	DailyCap     int `yaml:"daily_cap"`

	WindowStartHour int `yaml:"window_start_hour"`
	WindowEndHour   int `yaml:"window_end_hour"`
	GraceMinutes    int `yaml:"grace_minutes"`

	PollSeconds         int `yaml:"poll_seconds"`
	InstantPauseSeconds int `yaml:"instant_pause_seconds"`
	HalfCutoffHour      int `yaml:"half_cutoff_hour"`
	HalfSpanHours       int `yaml:"half_span_hours"`

	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	RetentionDays         int `yaml:"retention_days"`

	location *time.Location
}

// Load reads the YAML config file named by ITNEWS_CONFIG (if set) and applies
// environment overrides on top of the built-in defaults.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DatabasePath: "./data/news.db",
		DataDir:      "./data",
		LogLevel:     "info",
		Timezone:     "UTC",
		Sources: []string{
			"https://www.theverge.com/rss/index.xml",
			"https://www.wired.com/feed/rss",
			"https://techcrunch.com/feed/",
			"https://feeds.arstechnica.com/arstechnica/index",
			"https://www.engadget.com/rss.xml",
			"https://venturebeat.com/feed/",
			"https://github.blog/feed/",
			"https://stackoverflow.blog/feed/",
			"https://feeds.feedburner.com/TheHackersNews",
		},
		TrustedDomains: []string{
			"theverge.com", "techcrunch.com", "wired.com", "arstechnica.com",
			"venturebeat.com", "github.blog", "engadget.com",
			"stackoverflow.blog", "feeds.feedburner.com",
		},
		BadKeywords: []string{
			"discount", "sale", "offer", "affiliate", "casino", "bet",
			"token", "crypto", "sponsored", "vpn", "deal", "price",
		},
		FetchLimit:            20,
		MaxAgeDays:            3,
		TopPerSource:          3,
		PerSourceCap:          3,
		DailyCap:              12,
		WindowStartHour:       9,
		WindowEndHour:         23,
		GraceMinutes:          10,
		PollSeconds:           60,
		InstantPauseSeconds:   2,
		HalfCutoffHour:        12,
		HalfSpanHours:         6,
		RequestTimeoutSeconds: 15,
		RetentionDays:         30,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(tokenEnv); v != "" {
		c.TelegramToken = v
	}
	if v := os.Getenv(chatEnv); v != "" {
		c.TelegramChat = v
	}
	if v := os.Getenv(reportTokenEnv); v != "" {
		c.ReportToken = v
	}
	if v := os.Getenv(reportChatEnv); v != "" {
		c.ReportChat = v
	}
	if v := os.Getenv(dbPathEnv); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv(dataDirEnv); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.WindowStartHour < 0 || c.WindowStartHour > 23 {
		return fmt.Errorf("window_start_hour must be between 0 and 23, got %d", c.WindowStartHour)
	}
	if c.WindowEndHour < 1 || c.WindowEndHour > 24 {
		return fmt.Errorf("window_end_hour must be between 1 and 24, got %d", c.WindowEndHour)
	}
	if c.WindowEndHour <= c.WindowStartHour {
		return fmt.Errorf("window_end_hour %d must be after window_start_hour %d", c.WindowEndHour, c.WindowStartHour)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one feed source is required")
	}
	if c.TopPerSource < 1 {
		return fmt.Errorf("top_per_source must be positive, got %d", c.TopPerSource)
	}
	if c.DailyCap < 1 {
		return fmt.Errorf("daily_cap must be positive, got %d", c.DailyCap)
	}
	if c.FetchLimit < 1 {
		return fmt.Errorf("fetch_limit must be positive, got %d", c.FetchLimit)
	}
	if c.MaxAgeDays < 1 {
		return fmt.Errorf("max_age_days must be positive, got %d", c.MaxAgeDays)
	}
	if c.GraceMinutes < 0 {
		return fmt.Errorf("grace_minutes must not be negative, got %d", c.GraceMinutes)
	}
	if c.PollSeconds < 1 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.InstantPauseSeconds < 0 {
		return fmt.Errorf("instant_pause_seconds must not be negative, got %d", c.InstantPauseSeconds)
	}
	if c.HalfSpanHours < 1 {
		return fmt.Errorf("half_span_hours must be positive, got %d", c.HalfSpanHours)
	}
	if c.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be positive, got %d", c.RetentionDays)
	}
	return nil
}

// ValidateChannel checks that the publication channel credentials are set.
// Only the post stages need them.
func (c *Config) ValidateChannel() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("%s is required", tokenEnv)
	}
	if c.TelegramChat == "" {
		return fmt.Errorf("%s is required", chatEnv)
	}
	return nil
}

// ValidateReport checks that the report channel credentials are set.
func (c *Config) ValidateReport() error {
	if c.ReportToken == "" {
		return fmt.Errorf("%s is required", reportTokenEnv)
	}
	if c.ReportChat == "" {
		return fmt.Errorf("%s is required", reportChatEnv)
	}
	return nil
}

// Location returns the configured timezone location.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}

// RequestTimeout is the per-call timeout for external fetches.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MaxAge is the recency window for collected candidates.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// Grace is the forward offset applied to a late schedule start.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// PollInterval is the poster's tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// InstantPause is the pause between back-to-back instant-mode sends.
func (c *Config) InstantPause() time.Duration {
	return time.Duration(c.InstantPauseSeconds) * time.Second
}

// HalfSpan is the duration the batch-half mode spreads its sends across.
func (c *Config) HalfSpan() time.Duration {
	return time.Duration(c.HalfSpanHours) * time.Hour
}

// Retention is how long seen and sent item ids are kept before expiry.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Paths to the per-run persisted artifacts inside DataDir.

// CandidatesFile is the snapshot of the current run's collected items.
func (c *Config) CandidatesFile() string { return filepath.Join(c.DataDir, "news.json") }

// SelectionFile is the snapshot of the items chosen for publication.
func (c *Config) SelectionFile() string { return filepath.Join(c.DataDir, "selected.json") }

// ScheduleFile is the snapshot of the publication schedule.
func (c *Config) ScheduleFile() string { return filepath.Join(c.DataDir, "schedule.json") }

// DeliveryStateFile tracks which items have already been delivered.
func (c *Config) DeliveryStateFile() string { return filepath.Join(c.DataDir, "sent_news.json") }

// ReportFile is the plain-text copy of the publication plan report.
func (c *Config) ReportFile() string { return filepath.Join(c.DataDir, "report.txt") }

// ImagesDir holds downloaded preview images.
func (c *Config) ImagesDir() string { return filepath.Join(c.DataDir, "images") }
