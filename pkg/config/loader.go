package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable read by the loader.
const DefaultEnvPrefix = "FREDDY"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
	v          *viper.Viper
	secrets    map[string]interface{}
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "FREDDY")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithFlags makes flags registered through RegisterFlags override every other
// source, but only when the user set them explicitly.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// Load loads configuration with precedence: flags > ENV > secrets file > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	// Start with defaults
	l.setDefaults(v, DefaultConfig())

	// Read config file if provided
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secrets, err := l.mergeSecrets(v)
	if err != nil {
		return nil, err
	}

	// Environment variables override file config through explicit bindings.
	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	l.v = v
	l.secrets = secrets
	return &cfg, nil
}

// AllSettings returns the merged settings of the last Load.
func (l *ViperLoader) AllSettings() map[string]interface{} {
	if l == nil || l.v == nil {
		return map[string]interface{}{}
	}
	return l.v.AllSettings()
}

// Secrets returns the raw settings read from the secrets file during the last
// Load, or nil when none was found.
func (l *ViperLoader) Secrets() map[string]interface{} {
	if l == nil {
		return nil
	}
	return l.secrets
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	// Service
	_ = v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	_ = v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	// Log
	_ = v.BindEnv("log.level", l.prefixedEnv("LOG_LEVEL"))
	_ = v.BindEnv("log.format", l.prefixedEnv("LOG_FORMAT"))

	// API
	_ = v.BindEnv("api.products_url", l.prefixedEnv("API_PRODUCTS_URL"), l.prefixedEnv("PRODUCTS_URL"))
	_ = v.BindEnv("api.sales_url", l.prefixedEnv("API_SALES_URL"), l.prefixedEnv("SALES_URL"))
	_ = v.BindEnv("api.timeout", l.prefixedEnv("API_TIMEOUT"))
	_ = v.BindEnv("api.retry", l.prefixedEnv("API_RETRY"))
	_ = v.BindEnv("api.rate_limit", l.prefixedEnv("API_RATE_LIMIT"))
	_ = v.BindEnv("api.burst", l.prefixedEnv("API_BURST"))

	// Cache
	_ = v.BindEnv("cache.type", l.prefixedEnv("CACHE_TYPE"))
	_ = v.BindEnv("cache.url", l.prefixedEnv("CACHE_URL"), l.prefixedEnv("REDIS_URL"))
	_ = v.BindEnv("cache.prefix", l.prefixedEnv("CACHE_PREFIX"))
	_ = v.BindEnv("cache.max_conns", l.prefixedEnv("CACHE_MAX_CONNS"))
	_ = v.BindEnv("cache.operation_timeout", l.prefixedEnv("CACHE_OPERATION_TIMEOUT"))
	_ = v.BindEnv("cache.stale_time", l.prefixedEnv("CACHE_STALE_TIME"))
	_ = v.BindEnv("cache.cache_time", l.prefixedEnv("CACHE_CACHE_TIME"))

	// Table
	_ = v.BindEnv("table.page_size", l.prefixedEnv("TABLE_PAGE_SIZE"))
	_ = v.BindEnv("table.search_debounce", l.prefixedEnv("TABLE_SEARCH_DEBOUNCE"))

	// Resilience
	_ = v.BindEnv("resilience.max_failures", l.prefixedEnv("RESILIENCE_MAX_FAILURES"))
	_ = v.BindEnv("resilience.reset_timeout", l.prefixedEnv("RESILIENCE_RESET_TIMEOUT"))

	// Tracing
	_ = v.BindEnv("tracing.enabled", l.prefixedEnv("TRACING_ENABLED"))
	_ = v.BindEnv("tracing.endpoint", l.prefixedEnv("TRACING_ENDPOINT"))
	_ = v.BindEnv("tracing.sample_rate", l.prefixedEnv("TRACING_SAMPLE_RATE"))

	// Metrics
	_ = v.BindEnv("metrics.enabled", l.prefixedEnv("METRICS_ENABLED"))
	_ = v.BindEnv("metrics.addr", l.prefixedEnv("METRICS_ADDR"))
	_ = v.BindEnv("metrics.path", l.prefixedEnv("METRICS_PATH"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	// Service defaults
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	// Log defaults
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	// API defaults
	v.SetDefault("api.products_url", cfg.API.ProductsURL)
	v.SetDefault("api.sales_url", cfg.API.SalesURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.retry", cfg.API.Retry)
	v.SetDefault("api.rate_limit", cfg.API.RateLimit)
	v.SetDefault("api.burst", cfg.API.Burst)

	// Cache defaults
	v.SetDefault("cache.type", cfg.Cache.Type)
	v.SetDefault("cache.url", cfg.Cache.URL)
	v.SetDefault("cache.prefix", cfg.Cache.Prefix)
	v.SetDefault("cache.max_conns", cfg.Cache.MaxConns)
	v.SetDefault("cache.operation_timeout", cfg.Cache.OperationTimeout)
	v.SetDefault("cache.stale_time", cfg.Cache.StaleTime)
	v.SetDefault("cache.cache_time", cfg.Cache.CacheTime)

	// Table defaults
	v.SetDefault("table.page_size", cfg.Table.PageSize)
	v.SetDefault("table.search_debounce", cfg.Table.SearchDebounce)

	// Resilience defaults
	v.SetDefault("resilience.max_failures", cfg.Resilience.MaxFailures)
	v.SetDefault("resilience.reset_timeout", cfg.Resilience.ResetTimeout)

	// Tracing defaults
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", cfg.Tracing.Endpoint)
	v.SetDefault("tracing.sample_rate", cfg.Tracing.SampleRate)

	// Metrics defaults
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Cache.Type = strings.ToLower(strings.TrimSpace(c.Cache.Type))
	c.API.ProductsURL = strings.TrimRight(strings.TrimSpace(c.API.ProductsURL), "/")
	c.API.SalesURL = strings.TrimRight(strings.TrimSpace(c.API.SalesURL), "/")
}
