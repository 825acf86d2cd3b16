package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fitmetrics/internal/log"
)

// Config represents the application configuration
type Config struct {
	Athlete  AthleteConfig  `json:"athlete"`
	Paths    PathsConfig    `json:"paths"`
	Pipeline PipelineConfig `json:"pipeline"`
	Cache    CacheConfig    `json:"cache"`
	Log      LogConfig      `json:"log"`
	Sentry   SentryConfig   `json:"sentry"`
}

// AthleteConfig holds the heart-rate settings used for zones
type AthleteConfig struct {
	RestingHR  float64 `json:"resting_hr"`
	MaxHR      float64 `json:"max_hr"`
	ZoneMethod string  `json:"zone_method"`
}

// PathsConfig holds the database and last-update marker locations
type PathsConfig struct {
	DBPath         string `json:"db_path"`
	LastUpdatePath string `json:"last_update_path"`
}

// PipelineConfig controls how many activities are processed in parallel
type PipelineConfig struct {
	Workers int `json:"workers"`
}

// CacheConfig bounds the read cache used by show
type CacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// SentryConfig holds error reporting settings
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	dir := configDir()
	return Config{
		Athlete: AthleteConfig{
			RestingHR:  48,
			MaxHR:      185,
			ZoneMethod: "hrr",
		},
		Paths: PathsConfig{
			DBPath:         filepath.Join(dir, "fitness.db"),
			LastUpdatePath: filepath.Join(dir, "last_update.json"),
		},
		Pipeline: PipelineConfig{Workers: 1},
		Cache: CacheConfig{
			Size:       256,
			TTLSeconds: 300,
		},
		Log: LogConfig{Level: "info"},
		Sentry: SentryConfig{
			Environment: "prod",
		},
	}
}

// Read parses the config file at path. An empty path resolves to
// FITNESS_CONFIG or ~/.fitness/config.json.
func Read(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies FITNESS_* environment overrides and fills zero values.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if errors.Is(err, ErrNoConfig) {
		defaults := DefaultConfig()
		cfg = &defaults
	} else if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	cfg.Paths.DBPath = expandHome(cfg.Paths.DBPath)
	cfg.Paths.LastUpdatePath = expandHome(cfg.Paths.LastUpdatePath)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Athlete.RestingHR == 0 {
		cfg.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if cfg.Athlete.MaxHR == 0 {
		cfg.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if cfg.Athlete.ZoneMethod == "" {
		cfg.Athlete.ZoneMethod = defaults.Athlete.ZoneMethod
	}
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = defaults.Paths.DBPath
	}
	if cfg.Paths.LastUpdatePath == "" {
		cfg.Paths.LastUpdatePath = defaults.Paths.LastUpdatePath
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = defaults.Pipeline.Workers
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = defaults.Cache.Size
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = defaults.Cache.TTLSeconds
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = defaults.Sentry.Environment
	}
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
		return nil
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("FITNESS_DB_PATH", &cfg.Paths.DBPath)
	setString("FITNESS_LAST_UPDATE_PATH", &cfg.Paths.LastUpdatePath)
	setString("FITNESS_HR_ZONE_METHOD", &cfg.Athlete.ZoneMethod)
	setString("FITNESS_LOG_LEVEL", &cfg.Log.Level)
	setString("FITNESS_SENTRY_DSN", &cfg.Sentry.DSN)
	setString("FITNESS_ENV", &cfg.Sentry.Environment)
	setString("FITNESS_RELEASE", &cfg.Sentry.Release)

	if err := setFloat("FITNESS_HR_REST", &cfg.Athlete.RestingHR); err != nil {
		return err
	}
	if err := setFloat("FITNESS_HR_MAX", &cfg.Athlete.MaxHR); err != nil {
		return err
	}
	if err := setInt("FITNESS_PIPELINE_WORKERS", &cfg.Pipeline.Workers); err != nil {
		return err
	}
	if err := setInt("FITNESS_CACHE_SIZE", &cfg.Cache.Size); err != nil {
		return err
	}
	if err := setInt("FITNESS_CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds); err != nil {
		return err
	}
	return nil
}

// Save writes the configuration to path, or the default location when empty
func Save(path string, cfg *Config) error {
	if path == "" {
		path = ConfigPath()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample writes the default config if none exists. It reports whether
// a file was written.
func CreateExample(path string) (bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	example := DefaultConfig()
	if err := Save(path, &example); err != nil {
		return false, err
	}
	return true, nil
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	if c.Athlete.RestingHR <= 0 {
		return fmt.Errorf("athlete.resting_hr must be positive, got %v", c.Athlete.RestingHR)
	}
	if c.Athlete.MaxHR <= c.Athlete.RestingHR {
		return fmt.Errorf("athlete.max_hr (%v) must be greater than athlete.resting_hr (%v)", c.Athlete.MaxHR, c.Athlete.RestingHR)
	}
	if strings.TrimSpace(c.Athlete.ZoneMethod) == "" {
		return errors.New("athlete.zone_method is required")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be at least 1, got %d", c.Cache.Size)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative, got %d", c.Cache.TTLSeconds)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		return fmt.Errorf("sentry.traces_sample_rate must be within [0, 1], got %v", c.Sentry.TracesSampleRate)
	}
	return nil
}

// ConfigPath returns FITNESS_CONFIG or ~/.fitness/config.json
func ConfigPath() string {
	if p := os.Getenv("FITNESS_CONFIG"); p != "" {
		return expandHome(p)
	}
	return filepath.Join(configDir(), "config.json")
}

// configDir returns ~/.fitness, or a relative .fitness when there is no home
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fitness"
	}
	return filepath.Join(home, ".fitness")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
