// Package config loads runner settings from TASKPOOL_* environment
// variables and optional command line flags. Every setting has a default,
// so the runners need no arguments at all.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TASKPOOL"

	DefaultProcesses = 2
	DefaultTasks     = 2
	DefaultSleep     = 100 * time.Millisecond
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
)

// Config holds the settings shared by all runners.
type Config struct {
	Processes int
	Tasks     int
	Sleep     time.Duration
	LogLevel  string
	LogFormat string
}

// NewViper returns a viper instance reading TASKPOOL_* variables on top of
// the defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("processes", DefaultProcesses)
	v.SetDefault("tasks", DefaultTasks)
	v.SetDefault("sleep", DefaultSleep)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("log-format", DefaultLogFormat)
	return v
}

// NewFlagSet declares the flags that mirror the environment variables.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Int("processes", DefaultProcesses, "number of worker processes")
	fs.Int("tasks", DefaultTasks, "number of tasks to dispatch")
	fs.Duration("sleep", DefaultSleep, "how long each cooperative task suspends")
	fs.String("log-level", DefaultLogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", DefaultLogFormat, "log format: console or json")
	return fs
}

// Load parses args and merges them with the environment. Flags given on the
// command line win over the environment, which wins over defaults.
func Load(name string, args []string) (*Config, error) {
	v := NewViper()
	fs := NewFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg := &Config{
		Processes: v.GetInt("processes"),
		Tasks:     v.GetInt("tasks"),
		Sleep:     v.GetDuration("sleep"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no runner can work with.
func (c *Config) Validate() error {
	if c.Processes <= 0 {
		return fmt.Errorf("processes must be positive, got %d", c.Processes)
	}
	if c.Tasks < 0 {
		return fmt.Errorf("tasks must not be negative, got %d", c.Tasks)
	}
	if c.Sleep < 0 {
		return fmt.Errorf("sleep must not be negative, got %s", c.Sleep)
	}
	return nil
}

// LoadLogging reads only the log settings from the environment. Worker
// processes use it so that settings they never act on cannot stop them.
func LoadLogging() (level, format string) {
	v := NewViper()
	return v.GetString("log-level"), v.GetString("log-format")
}

// LoggingEnv renders the resolved log settings as TASKPOOL_* variables for
// child processes.
func (c *Config) LoggingEnv() []string {
	return []string{
		EnvPrefix + "_LOG_LEVEL=" + c.LogLevel,
		EnvPrefix + "_LOG_FORMAT=" + c.LogFormat,
	}
}
