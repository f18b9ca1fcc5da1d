package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// APIBase is the search service origin; /api/v1/search is appended to it.
	APIBase        string        `yaml:"api_base"`
	Port           string        `yaml:"port"`
	CacheDBPath    string        `yaml:"cache_db_path"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogPretty      bool          `yaml:"log_pretty"`
	// DiscardStale drops responses to searches that a newer search has
	// superseded. When false the last response to arrive wins.
	DiscardStale bool `yaml:"discard_stale"`
}

func Default() *Config {
	return &Config{
		APIBase:        "http://localhost:8080",
		Port:           "9090",
		CacheDBPath:    "./cache.db",
		CacheTTL:       30 * time.Minute,
		RequestTimeout: 0,
		LogLevel:       "info",
		LogPretty:      true,
		DiscardStale:   true,
	}
}

// Load layers the defaults, the YAML file at path (skipped when path is
// empty) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if val := getenv("API_BASE_URL"); val != "" {
		c.APIBase = val
	}
	if val := getenv("PORT"); val != "" {
		c.Port = val
	}
	if val := getenv("CACHE_DB_PATH"); val != "" {
		c.CacheDBPath = val
	}
	if val := getenv("CACHE_TTL_MINUTES"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("CACHE_TTL_MINUTES must be a positive integer, got %q", val)
		}
		c.CacheTTL = time.Duration(parsed) * time.Minute
	}
	if val := getenv("REQUEST_TIMEOUT_SECONDS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 0 {
			return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be a non-negative integer, got %q", val)
		}
		c.RequestTimeout = time.Duration(parsed) * time.Second
	}
	if val := getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := getenv("LOG_PRETTY"); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.LogPretty = parsed
	}
	if val := getenv("DISCARD_STALE"); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("DISCARD_STALE: %w", err)
		}
		c.DiscardStale = parsed
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.APIBase, "http://") && !strings.HasPrefix(c.APIBase, "https://") {
		errs = append(errs, fmt.Errorf("api_base must be an http(s) URL, got %q", c.APIBase))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache_ttl must be positive"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// SearchURL is the full URL of the search endpoint.
func (c *Config) SearchURL() string {
	return strings.TrimRight(c.APIBase, "/") + "/api/v1/search"
}
