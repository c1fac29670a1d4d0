package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"products-url": "api.products_url",
	"sales-url":    "api.sales_url",
	"api-timeout":  "api.timeout",
	"cache-type":   "cache.type",
	"cache-url":    "cache.url",
	"page-size":    "table.page_size",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags adds the configuration override flags to fs. Defaults are
// empty so only explicitly set flags take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json, text)")
	fs.String("products-url", "", "products API base URL")
	fs.String("sales-url", "", "sales API base URL")
	fs.Duration("api-timeout", 0, "per-request API timeout")
	fs.String("cache-type", "", "query cache backend (inmemory, redis)")
	fs.String("cache-url", "", "redis URL for the redis cache backend")
	fs.Int("page-size", 0, "initial table page size")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := l.flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
		if name == "metrics-addr" {
			v.Set("metrics.enabled", true)
		}
	}
	return nil
}
