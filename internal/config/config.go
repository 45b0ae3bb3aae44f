package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config represents the complete configuration for aether.
type Config struct {
	// ContentFiltering controls rule sources and matching
	ContentFiltering ContentFilteringConfig `mapstructure:"content_filtering" toml:"content_filtering"`
	// Proxy controls the interception proxy started by `aether serve`
	Proxy   ProxyConfig   `mapstructure:"proxy" toml:"proxy"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// ContentFilteringConfig holds content filtering and ad blocking preferences
type ContentFilteringConfig struct {
	// Enabled controls whether requests are checked at all (default: true)
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
	// Mode is "substring" (default) or "grammar"
	Mode string `mapstructure:"mode" toml:"mode"`
	// Lists are local blocklist files, loaded in order. When empty, the
	// downloaded copies of Sources are used.
	Lists []string `mapstructure:"lists" toml:"lists"`
	// Sources are the remote lists fetched by `aether update`
	Sources []ListSourceConfig `mapstructure:"sources" toml:"sources"`
	// ListDir is where downloaded lists are stored (default: XDG data dir)
	ListDir string `mapstructure:"list_dir" toml:"list_dir"`
}

// ListSourceConfig names a remote blocklist.
type ListSourceConfig struct {
	Name string `mapstructure:"name" toml:"name"`
	URL  string `mapstructure:"url" toml:"url"`
}

// ProxyConfig holds interception proxy settings.
type ProxyConfig struct {
	Listen        string `mapstructure:"listen" toml:"listen"`
	MetricsListen string `mapstructure:"metrics_listen" toml:"metrics_listen"`
	// DecisionCacheSize bounds the per-URL decision cache; 0 disables it
	DecisionCacheSize int `mapstructure:"decision_cache_size" toml:"decision_cache_size"`
	// DialTimeoutSeconds bounds upstream CONNECT dials
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds" toml:"dial_timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// Manager handles configuration loading.
type Manager struct {
	config     *Config
	viper      *viper.Viper
	mu         sync.RWMutex
	explicit   string
	configFile string
}

// NewManager creates a new configuration manager. configFile overrides
// the XDG location when non-empty.
func NewManager(configFile string) (*Manager, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")

		configDir, err := GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
		}
		v.AddConfigPath(configDir)
	}

	// Environment variables use the AETHER_ prefix, e.g.
	// AETHER_CONTENT_FILTERING_MODE or AETHER_PROXY_LISTEN.
	v.SetEnvPrefix("AETHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("logging.level", "AETHER_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind AETHER_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "AETHER_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind AETHER_LOG_FORMAT: %w", err)
	}

	return &Manager{viper: v, explicit: configFile}, nil
}

// Load loads the configuration from file and environment variables.
// A missing XDG config file is created with defaults; a missing explicit
// file is an error.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	setDefaults(m.viper)

	if err := m.readConfigFile(); err != nil {
		return err
	}

	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf(
			"failed to parse config file at %s: %w\nCheck for syntax errors, invalid values, or type mismatches",
			m.viper.ConfigFileUsed(),
			err,
		)
	}

	if err := normalizeConfig(config); err != nil {
		return err
	}
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	m.configFile = m.viper.ConfigFileUsed()
	return nil
}

func (m *Manager) readConfigFile() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if m.explicit != "" || !errors.As(err, &notFound) {
		configFile := m.viper.ConfigFileUsed()
		if configFile == "" {
			configFile = m.explicit
		}
		return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", configFile, err)
	}

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}
	if err := WriteConfigOrdered(DefaultConfig(), configFile); err != nil {
		return fmt.Errorf(
			"failed to create default config at %s: %w\nTry creating the directory manually or check permissions",
			filepath.Dir(configFile),
			err,
		)
	}
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf(
			"failed to read newly created config file: %w\nThe config file was created but couldn't be read. Please check the file format",
			err,
		)
	}
	return nil
}

func normalizeConfig(config *Config) error {
	cf := &config.ContentFiltering
	cf.Mode = strings.ToLower(strings.TrimSpace(cf.Mode))
	if cf.Mode == "" {
		cf.Mode = defaultMatchMode
	}

	if cf.ListDir == "" {
		dir, err := GetListDir()
		if err != nil {
			return fmt.Errorf("failed to get list directory: %w", err)
		}
		cf.ListDir = dir
	}
	cf.ListDir = expandHome(cf.ListDir)
	for i, path := range cf.Lists {
		cf.Lists[i] = expandHome(strings.TrimSpace(path))
	}

	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))
	return nil
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

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return DefaultConfig()
	}
	// Return a copy to prevent external modification
	configCopy := *m.config
	configCopy.ContentFiltering.Lists = append([]string(nil), m.config.ContentFiltering.Lists...)
	configCopy.ContentFiltering.Sources = append([]ListSourceConfig(nil), m.config.ContentFiltering.Sources...)
	return &configCopy
}

// ConfigFile returns the path to the configuration file being used.
func (m *Manager) ConfigFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configFile
}
