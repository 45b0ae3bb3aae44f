package config

import "github.com/spf13/viper"

// Default configuration constants
const (
	defaultMatchMode          = "substring"
	defaultProxyListen        = "127.0.0.1:8118"
	defaultMetricsListen      = "127.0.0.1:9118"
	defaultDecisionCacheSize  = 4096 // entries
	defaultDialTimeoutSeconds = 10
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContentFiltering: ContentFilteringConfig{
			Enabled: true,
			Mode:    defaultMatchMode,
			Lists:   []string{},
			Sources: []ListSourceConfig{
				{Name: "easylist", URL: "https://easylist.to/easylist/easylist.txt"},
				{Name: "easyprivacy", URL: "https://easylist.to/easylist/easyprivacy.txt"},
			},
		},
		Proxy: ProxyConfig{
			Listen:             defaultProxyListen,
			MetricsListen:      defaultMetricsListen,
			DecisionCacheSize:  defaultDecisionCacheSize,
			DialTimeoutSeconds: defaultDialTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	sources := make([]map[string]any, 0, len(d.ContentFiltering.Sources))
	for _, src := range d.ContentFiltering.Sources {
		sources = append(sources, map[string]any{"name": src.Name, "url": src.URL})
	}

	v.SetDefault("content_filtering.enabled", d.ContentFiltering.Enabled)
	v.SetDefault("content_filtering.mode", d.ContentFiltering.Mode)
	v.SetDefault("content_filtering.lists", d.ContentFiltering.Lists)
	v.SetDefault("content_filtering.sources", sources)
	v.SetDefault("content_filtering.list_dir", "")

	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.metrics_listen", d.Proxy.MetricsListen)
	v.SetDefault("proxy.decision_cache_size", d.Proxy.DecisionCacheSize)
	v.SetDefault("proxy.dial_timeout_seconds", d.Proxy.DialTimeoutSeconds)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
