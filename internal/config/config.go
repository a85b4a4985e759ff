package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	// EnvPrefix is the prefix for all environment variables
	EnvPrefix = "BACKUP_PRUNER_"
	// EnvStoragePrefix is the prefix for storage pool environment variables
	EnvStoragePrefix = EnvPrefix + "STORAGE_"
	// EnvNotifyPrefix is the prefix for notification provider environment variables
	EnvNotifyPrefix = EnvPrefix + "NOTIFY_"
)

// Time sources for backup timestamps
const (
	TimeSourceMTime = "mtime"
	TimeSourceName  = "name"
)

// Report output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// DefaultPolicy keeps the last 7 backups plus the last backup of each of the
// last 12 months and deletes the rest.
var DefaultPolicy = []string{"last-n=7", "last-of-n-months=12", "delete-unset"}

// Config holds the global application configuration
type Config struct {
	// Discovery settings
	Root       string
	Extensions []string
	Recursive  bool
	TimeSource string

	// Retention settings
	Policy      []string
	DryRun      bool
	FailOnError bool

	// Storage settings
	Pool           string
	DefaultStorage string
	StorageArgs    []string
	StoragePools   map[string]*StoragePool

	// Notification settings
	NotifyArgs    []string
	NotifyConfigs map[string]*NotifyConfig

	// Daemon settings
	Schedule    string
	MetricsAddr string
	RunTimeout  time.Duration

	// Output
	Output    string
	LogLevel  string
	LogFormat string
}

// StoragePool represents a named storage pool configuration
type StoragePool struct {
	Name    string
	Type    string
	Options map[string]string
}

// NotifyConfig represents a named notification provider configuration
type NotifyConfig struct {
	Name    string
	Type    string
	Options map[string]string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		TimeSource:    TimeSourceMTime,
		Policy:        append([]string(nil), DefaultPolicy...),
		Schedule:      "0 3 * * *",
		RunTimeout:    time.Hour,
		Output:        OutputText,
		LogLevel:      "info",
		LogFormat:     "text",
		StoragePools:  make(map[string]*StoragePool),
		NotifyConfigs: make(map[string]*NotifyConfig),
	}
}

// Validate checks the settings that do not depend on storage or notifiers
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required (use --extension)")
	}

	for i, ext := range c.Extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			return fmt.Errorf("extension %d is empty", i+1)
		}
		c.Extensions[i] = ext
	}

	if len(c.Policy) == 0 {
		return fmt.Errorf("policy must contain at least one strategy")
	}

	switch c.TimeSource {
	case TimeSourceMTime, TimeSourceName:
	default:
		return fmt.Errorf("invalid time source %q (expected %s or %s)", c.TimeSource, TimeSourceMTime, TimeSourceName)
	}

	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output format %q (expected %s or %s)", c.Output, OutputText, OutputJSON)
	}

	if c.Root == "" && c.Pool == "" && c.DefaultStorage == "" {
		return fmt.Errorf("a backup path or a storage pool is required")
	}

	return nil
}

// ParseStoragePools builds storage pools from environment variables and
// --storage arguments. Arguments override environment variables.
func (c *Config) ParseStoragePools() error {
	c.parseEnvOptions(EnvStoragePrefix, c.setStoragePoolOption)

	if err := parseOptionArgs("storage", "pool", c.StorageArgs, c.setStoragePoolOption); err != nil {
		return err
	}

	// Validate all pools have a type
	for _, name := range sortedKeys(c.StoragePools) {
		if c.StoragePools[name].Type == "" {
			return fmt.Errorf("storage pool %q is missing required 'type' option", name)
		}
	}

	// Set default storage if not specified and only one pool exists
	if c.DefaultStorage == "" && len(c.StoragePools) == 1 {
		for name := range c.StoragePools {
			c.DefaultStorage = name
		}
	}

	// Check for default storage from environment
	if c.DefaultStorage == "" {
		if envDefault := os.Getenv(EnvPrefix + "DEFAULT_STORAGE"); envDefault != "" {
			c.DefaultStorage = envDefault
		}
	}

	// Validate default storage exists
	if c.DefaultStorage != "" {
		if _, exists := c.StoragePools[c.DefaultStorage]; !exists {
			return fmt.Errorf("default storage pool %q does not exist", c.DefaultStorage)
		}
	}

	if c.Pool != "" {
		if _, exists := c.StoragePools[c.Pool]; !exists {
			return fmt.Errorf("storage pool %q does not exist", c.Pool)
		}
	}

	return nil
}

// ParseNotifyConfigs builds notification providers from environment
// variables and --notify arguments. Arguments override environment variables.
func (c *Config) ParseNotifyConfigs() error {
	c.parseEnvOptions(EnvNotifyPrefix, c.setNotifyConfigOption)

	if err := parseOptionArgs("notify", "provider", c.NotifyArgs, c.setNotifyConfigOption); err != nil {
		return err
	}

	// Validate all configs have a type
	for _, name := range sortedKeys(c.NotifyConfigs) {
		if c.NotifyConfigs[name].Type == "" {
			return fmt.Errorf("notification provider %q is missing required 'type' option", name)
		}
	}

	return nil
}

// parseOptionArgs parses "name.option=value" arguments
func parseOptionArgs(kind, owner string, args []string, set func(name, option, value string)) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid %s argument format: %s (expected %s.option=value)", kind, arg, owner)
		}

		name, option, ok := strings.Cut(key, ".")
		if !ok || name == "" || option == "" {
			return fmt.Errorf("invalid %s key format: %s (expected %s.option)", kind, key, owner)
		}

		set(name, option, value)
	}
	return nil
}

// parseEnvOptions parses variables such as
// BACKUP_PRUNER_STORAGE_OFFSITE_ACCESS_KEY -> pool "offsite", option "access-key"
func (c *Config) parseEnvOptions(prefix string, set func(name, option, value string)) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		remainder := strings.TrimPrefix(key, prefix)
		name, option, ok := strings.Cut(remainder, "_")
		if !ok || name == "" || option == "" {
			continue // Invalid format
		}

		option = strings.ReplaceAll(strings.ToLower(option), "_", "-")
		set(strings.ToLower(name), option, value)
	}
}

func (c *Config) setStoragePoolOption(poolName, option, value string) {
	pool, exists := c.StoragePools[poolName]
	if !exists {
		pool = &StoragePool{
			Name:    poolName,
			Options: make(map[string]string),
		}
		c.StoragePools[poolName] = pool
	}

	if option == "type" {
		pool.Type = value
	} else {
		pool.Options[option] = value
	}
}

func (c *Config) setNotifyConfigOption(providerName, option, value string) {
	cfg, exists := c.NotifyConfigs[providerName]
	if !exists {
		cfg = &NotifyConfig{
			Name:    providerName,
			Options: make(map[string]string),
		}
		c.NotifyConfigs[providerName] = cfg
	}

	if option == "type" {
		cfg.Type = value
	} else {
		cfg.Options[option] = value
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
