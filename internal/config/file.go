package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML representation of the configuration
type File struct {
	Root           string                       `yaml:"root"`
	Extensions     []string                     `yaml:"extensions"`
	Recursive      *bool                        `yaml:"recursive"`
	TimeSource     string                       `yaml:"timeSource"`
	Policy         []string                     `yaml:"policy"`
	DryRun         *bool                        `yaml:"dryRun"`
	FailOnError    *bool                        `yaml:"failOnError"`
	Pool           string                       `yaml:"pool"`
	DefaultStorage string                       `yaml:"defaultStorage"`
	Storage        map[string]map[string]string `yaml:"storage"`
	Notify         map[string]map[string]string `yaml:"notify"`
	Schedule       string                       `yaml:"schedule"`
	MetricsAddr    string                       `yaml:"metricsAddr"`
	RunTimeout     time.Duration                `yaml:"runTimeout"`
	Output         string                       `yaml:"output"`
	Logging        struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// expandEnvVars replaces $(VAR) with the value of the environment variable VAR
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// ReadFile reads and decodes a YAML configuration file
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &f, nil
}

// ApplyFile copies settings from the file into c. Settings for which
// isSet(flagName) reports true were given on the command line and win.
func (c *Config) ApplyFile(f *File, isSet func(flag string) bool) {
	if isSet == nil {
		isSet = func(string) bool { return false }
	}

	setString := func(flag string, dst *string, v string) {
		if v != "" && !isSet(flag) {
			*dst = v
		}
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if v != nil && !isSet(flag) {
			*dst = *v
		}
	}

	setString("root", &c.Root, f.Root)
	setString("time-source", &c.TimeSource, f.TimeSource)
	setString("pool", &c.Pool, f.Pool)
	setString("default-storage", &c.DefaultStorage, f.DefaultStorage)
	setString("schedule", &c.Schedule, f.Schedule)
	setString("metrics-addr", &c.MetricsAddr, f.MetricsAddr)
	setString("output", &c.Output, f.Output)
	setString("log-level", &c.LogLevel, f.Logging.Level)
	setString("log-format", &c.LogFormat, f.Logging.Format)

	setBool("recursive", &c.Recursive, f.Recursive)
	setBool("dry-run", &c.DryRun, f.DryRun)
	setBool("fail-on-error", &c.FailOnError, f.FailOnError)

	if len(f.Extensions) > 0 && !isSet("extension") {
		c.Extensions = append([]string(nil), f.Extensions...)
	}
	if len(f.Policy) > 0 && !isSet("policy") {
		c.Policy = append([]string(nil), f.Policy...)
	}
	if f.RunTimeout > 0 && !isSet("run-timeout") {
		c.RunTimeout = f.RunTimeout
	}

	// Pools from the file are the lowest layer: env vars and --storage/--notify
	// arguments parsed afterwards override single options.
	for _, name := range sortedKeys(f.Storage) {
		for _, option := range sortedKeys(f.Storage[name]) {
			c.setStoragePoolOption(name, option, f.Storage[name][option])
		}
	}
	for _, name := range sortedKeys(f.Notify) {
		for _, option := range sortedKeys(f.Notify[name]) {
			c.setNotifyConfigOption(name, option, f.Notify[name][option])
		}
	}
}
