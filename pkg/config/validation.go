package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

const redactedValue = "***"

// Validate checks if the configuration is valid and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("invalid log.level: %s (must be one of: %v)", c.Log.Level, validLevels))
	}
	validFormats := []string{"json", "text"}
	if !contains(validFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("invalid log.format: %s (must be one of: %v)", c.Log.Format, validFormats))
	}

	if err := validateBaseURL("api.products_url", c.API.ProductsURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateBaseURL("api.sales_url", c.API.SalesURL); err != nil {
		errs = append(errs, err)
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout cannot be negative"))
	}
	if c.API.Retry < 0 {
		errs = append(errs, errors.New("api.retry cannot be negative"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit cannot be negative"))
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		errs = append(errs, errors.New("api.burst must be at least 1 when api.rate_limit is set"))
	}

	validCacheTypes := []string{CacheTypeInMemory, CacheTypeRedis}
	if !contains(validCacheTypes, c.Cache.Type) {
		errs = append(errs, fmt.Errorf("invalid cache.type: %s (must be one of: %v)", c.Cache.Type, validCacheTypes))
	}
	if c.Cache.Type == CacheTypeRedis && c.Cache.URL == "" {
		errs = append(errs, errors.New("cache.url is required when cache.type is redis"))
	}
	if c.Cache.StaleTime < 0 || c.Cache.CacheTime < 0 {
		errs = append(errs, errors.New("cache.stale_time and cache.cache_time cannot be negative"))
	}
	if c.Cache.CacheTime > 0 && c.Cache.CacheTime < c.Cache.StaleTime {
		errs = append(errs, errors.New("cache.cache_time must not be shorter than cache.stale_time"))
	}

	if c.Table.PageSize < 1 {
		errs = append(errs, errors.New("table.page_size must be at least 1"))
	}
	if c.Table.SearchDebounce < 0 {
		errs = append(errs, errors.New("table.search_debounce cannot be negative"))
	}

	if c.Resilience.MaxFailures < 1 {
		errs = append(errs, errors.New("resilience.max_failures must be at least 1"))
	}
	if c.Resilience.ResetTimeout <= 0 {
		errs = append(errs, errors.New("resilience.reset_timeout must be positive"))
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			errs = append(errs, errors.New("tracing.sample_rate must be between 0 and 1"))
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, errors.New("metrics.path must start with /"))
		}
	}

	return errors.Join(errs...)
}

func validateBaseURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", key)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: host is required", key)
	}
	return nil
}

// String returns the full configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}

// Redacted returns the configuration as YAML with URL credentials and every
// value that came from the secrets file masked.
func (c *Config) Redacted(secrets map[string]interface{}) (string, error) {
	masked := *c
	masked.Cache.URL = redactURL(masked.Cache.URL)
	masked.API.ProductsURL = redactURL(masked.API.ProductsURL)
	masked.API.SalesURL = redactURL(masked.API.SalesURL)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if len(secrets) == 0 {
		return string(data), nil
	}

	var settings map[string]interface{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return "", fmt.Errorf("unmarshal config: %w", err)
	}
	data, err = yaml.Marshal(RedactSettings(settings, secrets))
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// RedactSettings masks every leaf of settings that has a non-zero counterpart
// in secrets.
func RedactSettings(settings, secrets map[string]interface{}) map[string]interface{} {
	if len(settings) == 0 || len(secrets) == 0 {
		return settings
	}
	out := make(map[string]interface{}, len(settings))
	for key, value := range settings {
		mask, ok := secrets[key]
		if !ok {
			out[key] = value
			continue
		}
		out[key] = redactSettingValue(value, mask)
	}
	return out
}

func redactSettingValue(value, mask interface{}) interface{} {
	if maskMap, ok := mask.(map[string]interface{}); ok {
		valueMap, ok := value.(map[string]interface{})
		if !ok {
			if shouldRedact(mask) {
				return redactedValue
			}
			return value
		}
		return RedactSettings(valueMap, maskMap)
	}
	if shouldRedact(mask) {
		return redactedValue
	}
	return value
}

func shouldRedact(mask interface{}) bool {
	if mask == nil {
		return false
	}
	switch value := mask.(type) {
	case string:
		return strings.TrimSpace(value) != ""
	case bool:
		return value
	case []interface{}:
		return len(value) > 0
	case map[string]interface{}:
		return len(value) > 0
	default:
		return !reflect.ValueOf(mask).IsZero()
	}
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), redactedValue)
	}
	return u.String()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
