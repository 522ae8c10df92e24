package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/joho/godotenv"
	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/perse/carbon-dashboard/internal/teams"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Labrador    LabradorConfig    `yaml:"labrador"`
	Polling     PollingConfig     `yaml:"polling"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Teams       []teams.Team      `yaml:"teams"`
	Cache       CacheConfig       `yaml:"cache"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Report      ReportConfig      `yaml:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether identifiers are masked in logs (default true).
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// LabradorConfig holds site-activity API configuration
type LabradorConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	UTMSource      string `yaml:"utm_source"`
	SiteType       string `yaml:"site_type"`
	PageLimit      int    `yaml:"page_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration
func (c LabradorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollingConfig holds polling configuration
type PollingConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// Interval returns the polling interval as a duration
func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// AggregationConfig holds the parameters of the aggregation engine
type AggregationConfig struct {
	OrgDomain              string   `yaml:"org_domain"`
	WeekStart              string   `yaml:"week_start"`
	Timezone               string   `yaml:"timezone"`
	StatusFilterExemptions []string `yaml:"status_filter_exemptions"`
	ExcludedMonths         []string `yaml:"excluded_months"`
	Shards                 int      `yaml:"shards"`
}

// Location resolves Timezone (UTC when empty).
func (c AggregationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Calendar builds the calendar described by the configuration.
func (c AggregationConfig) Calendar() (*calendar.Calendar, error) {
	weekStart, err := calendar.ParseWeekday(c.WeekStart)
	if err != nil {
		return nil, err
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	for _, m := range c.ExcludedMonths {
		if _, err := time.Parse("2006-01", strings.TrimSpace(m)); err != nil {
			return nil, fmt.Errorf("excluded month %q: want YYYY-MM", m)
		}
	}
	return calendar.New(
		calendar.WithWeekStart(weekStart),
		calendar.WithLocation(loc),
		calendar.WithExcludedMonths(c.ExcludedMonths...),
	), nil
}

// Filter builds the record filter.
func (c AggregationConfig) Filter() stats.Filter {
	return stats.NewFilter(c.OrgDomain, c.StatusFilterExemptions...)
}

// CacheConfig holds Redis snapshot cache settings
type CacheConfig struct {
	RedisURL           string `yaml:"redis_url"`
	SnapshotTTLMinutes int    `yaml:"snapshot_ttl_minutes"`
}

// SnapshotTTL returns the snapshot TTL as a duration
func (c CacheConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMinutes) * time.Minute
}

// StorageConfig holds report archive configuration
type StorageConfig struct {
	Type       string `yaml:"type"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Prefix     string `yaml:"prefix"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// DatabaseConfig holds PostgreSQL settings for the report run ledger
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// ReportConfig holds the daily report schedule
type ReportConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Hour           *int     `yaml:"hour"`
	Recipients     []string `yaml:"recipients"`
	LockTTLMinutes int      `yaml:"lock_ttl_minutes"`
}

// ScheduleHour returns the local hour the daily report fires (default 7).
func (c ReportConfig) ScheduleHour() int {
	if c.Hour == nil {
		return 7
	}
	return *c.Hour
}

// LockTTL returns the scheduler lock TTL as a duration
func (c ReportConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Labrador.BaseURL == "" {
		cfg.Labrador.BaseURL = "https://api.labrador.ai"
	}
	if cfg.Labrador.UTMSource == "" {
		cfg.Labrador.UTMSource = "EDF"
	}
	if cfg.Labrador.SiteType == "" {
		cfg.Labrador.SiteType = "ndomestic"
	}
	if cfg.Labrador.PageLimit == 0 {
		cfg.Labrador.PageLimit = 3000
	}
	if cfg.Labrador.TimeoutSeconds == 0 {
		cfg.Labrador.TimeoutSeconds = 60
	}
	if cfg.Labrador.MaxRetries == 0 {
		cfg.Labrador.MaxRetries = 3
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 300
	}
	if cfg.Aggregation.OrgDomain == "" {
		cfg.Aggregation.OrgDomain = "edfenergy.com"
	}
	if cfg.Aggregation.WeekStart == "" {
		cfg.Aggregation.WeekStart = "monday"
	}
	if cfg.Aggregation.Timezone == "" {
		cfg.Aggregation.Timezone = "Europe/London"
	}
	if cfg.Aggregation.Shards == 0 {
		cfg.Aggregation.Shards = 4
	}
	if cfg.Cache.SnapshotTTLMinutes == 0 {
		cfg.Cache.SnapshotTTLMinutes = 60
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/reports"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "eu-west-2"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "reports"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 5
	}
	if cfg.Report.LockTTLMinutes == 0 {
		cfg.Report.LockTTLMinutes = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LABRADOR_E_API_KEY"); v != "" {
		cfg.Labrador.APIKey = v
	}
	if v := os.Getenv("LABRADOR_BASE_URL"); v != "" {
		cfg.Labrador.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REPORT_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "aws"
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("ORG_DOMAIN"); v != "" {
		cfg.Aggregation.OrgDomain = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at start-up.
func (c *Config) Validate() error {
	if h := c.Report.ScheduleHour(); h < 0 || h > 23 {
		return fmt.Errorf("report.hour must be 0-23, got %d", h)
	}
	switch c.Storage.Type {
	case "local", "aws":
	default:
		return fmt.Errorf("storage.type must be local or aws, got %q", c.Storage.Type)
	}
	if c.Storage.Type == "aws" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.s3_bucket is required for aws storage")
	}
	if _, err := c.Aggregation.Calendar(); err != nil {
		return err
	}
	return nil
}
