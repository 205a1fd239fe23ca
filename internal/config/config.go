package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Profile    ProfileConfig    `yaml:"profile"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// UpstreamConfig describes the booking REST API the calendar reads from.
type UpstreamConfig struct {
	BaseURL        string      `yaml:"base_url"`
	Token          string      `yaml:"token"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	CacheTTL       int         `yaml:"cache_ttl_seconds"`
	Retry          RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	BackoffFactor  float64 `yaml:"backoff_factor"`
}

type CalendarConfig struct {
	WeekStart               string `yaml:"week_start"`
	RefreshCron             string `yaml:"refresh_cron"`
	PrefetchMonths          int    `yaml:"prefetch_months"`
	MaxOccurrencesPerSeries int    `yaml:"max_occurrences_per_series"`
	ViewCacheTTL            int    `yaml:"view_cache_ttl_seconds"`
	ICSTimezone             string `yaml:"ics_timezone"`
}

type ProfileConfig struct {
	UploadsBaseURL string `yaml:"uploads_base_url"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base_url is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream base_url %q is not an absolute URL", c.Upstream.BaseURL)
	}

	switch strings.ToLower(c.Calendar.WeekStart) {
	case "sunday", "monday":
	default:
		return fmt.Errorf("calendar.week_start must be sunday or monday, got %q", c.Calendar.WeekStart)
	}

	if c.Calendar.PrefetchMonths < 0 {
		return errors.New("calendar.prefetch_months must not be negative")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "roomcal"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 10
	}
	if c.Upstream.CacheTTL == 0 {
		c.Upstream.CacheTTL = 300
	}
	if c.Upstream.Retry.MaxRetries == 0 {
		c.Upstream.Retry.MaxRetries = 3
	}
	if c.Upstream.Retry.InitialDelayMS == 0 {
		c.Upstream.Retry.InitialDelayMS = 200
	}
	if c.Upstream.Retry.MaxDelayMS == 0 {
		c.Upstream.Retry.MaxDelayMS = 5000
	}
	if c.Upstream.Retry.BackoffFactor == 0 {
		c.Upstream.Retry.BackoffFactor = 2
	}

	// Calendar defaults
	if c.Calendar.WeekStart == "" {
		c.Calendar.WeekStart = "sunday"
	}
	if c.Calendar.RefreshCron == "" {
		c.Calendar.RefreshCron = "*/15 * * * *"
	}
	if c.Calendar.PrefetchMonths == 0 {
		c.Calendar.PrefetchMonths = 1
	}
	if c.Calendar.MaxOccurrencesPerSeries == 0 {
		c.Calendar.MaxOccurrencesPerSeries = 5000
	}
	if c.Calendar.ViewCacheTTL == 0 {
		c.Calendar.ViewCacheTTL = 30
	}
	if c.Calendar.ICSTimezone == "" {
		c.Calendar.ICSTimezone = "UTC"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
}
