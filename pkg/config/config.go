package config

import "time"

// Cache type constants
const (
	// CacheTypeInMemory keeps query results in process memory
	CacheTypeInMemory = "inmemory"
	// CacheTypeRedis shares query results through Redis
	CacheTypeRedis = "redis"
)

// Config is the root configuration of the freddy client.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service" yaml:"service" json:"service"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	API        APIConfig        `mapstructure:"api" yaml:"api" json:"api"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache" json:"cache"`
	Table      TableConfig      `mapstructure:"table" yaml:"table" json:"table"`
	Resilience ResilienceConfig `mapstructure:"resilience" yaml:"resilience" json:"resilience"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing" json:"tracing"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// ServiceConfig configures client identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name" json:"name"`
	Environment string `mapstructure:"environment" yaml:"environment" json:"environment"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// APIConfig configures the remote backends.
type APIConfig struct {
	// ProductsURL is the base URL of the products backend; the resource
	// lives under /products
	ProductsURL string `mapstructure:"products_url" yaml:"products_url" json:"products_url"`
	// SalesURL is the base URL of the sales backend; the resource lives
	// under /sales
	SalesURL string        `mapstructure:"sales_url" yaml:"sales_url" json:"sales_url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	// Retry is the number of extra attempts for idempotent reads
	Retry int `mapstructure:"retry" yaml:"retry" json:"retry"`
	// RateLimit is requests per second per backend; zero disables limiting
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst" json:"burst"`
}

// CacheConfig configures the query cache backing the tables.
type CacheConfig struct {
	Type             string        `mapstructure:"type" yaml:"type" json:"type"`
	URL              string        `mapstructure:"url" yaml:"url" json:"url"`
	Prefix           string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	MaxConns         int           `mapstructure:"max_conns" yaml:"max_conns" json:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout" json:"operation_timeout"`
	// StaleTime is how long a fetched page is served without refetching
	StaleTime time.Duration `mapstructure:"stale_time" yaml:"stale_time" json:"stale_time"`
	// CacheTime is how long entries live in the store; zero keeps them
	CacheTime time.Duration `mapstructure:"cache_time" yaml:"cache_time" json:"cache_time"`
}

// TableConfig configures the entity tables.
type TableConfig struct {
	PageSize       int           `mapstructure:"page_size" yaml:"page_size" json:"page_size"`
	SearchDebounce time.Duration `mapstructure:"search_debounce" yaml:"search_debounce" json:"search_debounce"`
}

// ResilienceConfig configures the per-resource circuit breakers.
type ResilienceConfig struct {
	MaxFailures  int           `mapstructure:"max_failures" yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" yaml:"reset_timeout" json:"reset_timeout"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
}

// MetricsConfig configures the Prometheus endpoint served while a command runs.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "freddy",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			ProductsURL: "http://localhost:8080/api",
			SalesURL:    "http://localhost:8081/api",
			Timeout:     10 * time.Second,
			Retry:       1,
			Burst:       1,
		},
		Cache: CacheConfig{
			Type:             CacheTypeInMemory,
			Prefix:           "freddy",
			MaxConns:         10,
			OperationTimeout: 500 * time.Millisecond,
			StaleTime:        time.Minute,
			CacheTime:        5 * time.Minute,
		},
		Table: TableConfig{
			PageSize:       10,
			SearchDebounce: 500 * time.Millisecond,
		},
		Resilience: ResilienceConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}
