// Package config loads apitester settings from a YAML file and APITESTER_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full set of settings
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig controls the relay server
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ClientConfig controls request dispatch from the CLI
type ClientConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	UseRelay bool          `mapstructure:"use_relay"`
	RelayURL string        `mapstructure:"relay_url"`
}

// RelayConfig controls the calls the relay makes downstream
type RelayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"` // zero: no explicit bound
}

// LogConfig selects log level and writers ("console", "json", "file")
type LogConfig struct {
	Level      string   `mapstructure:"level"`
	Writer     []string `mapstructure:"writer"`
	File       string   `mapstructure:"file"`
	MaxSizeMB  int      `mapstructure:"max_size_mb"`
	MaxBackups int      `mapstructure:"max_backups"`
}

const (
	DefaultPort     = 5000
	DefaultTimeout  = 30 * time.Second
	envPrefix       = "APITESTER"
	defaultDirName  = ".apitester"
	defaultFileName = "config.yaml"
	localFileName   = ".apitester.yaml"
)

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Client: ClientConfig{
			Timeout:  DefaultTimeout,
			RelayURL: fmt.Sprintf("http://localhost:%d/api/test/send", DefaultPort),
		},
		Log: LogConfig{
			Level:      "info",
			Writer:     []string{"console"},
			File:       filepath.Join(defaultDirName, "apitester.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Settings flattens the config into nested maps keyed like the YAML file
func (c *Config) Settings() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host": c.Server.Host,
			"port": c.Server.Port,
		},
		"client": map[string]interface{}{
			"timeout":   c.Client.Timeout.String(),
			"use_relay": c.Client.UseRelay,
			"relay_url": c.Client.RelayURL,
		},
		"relay": map[string]interface{}{
			"timeout": c.Relay.Timeout.String(),
		},
		"log": map[string]interface{}{
			"level":       c.Log.Level,
			"writer":      c.Log.Writer,
			"file":        c.Log.File,
			"max_size_mb": c.Log.MaxSizeMB,
			"max_backups": c.Log.MaxBackups,
		},
	}
}

// YAML renders the config as a YAML document
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Settings())
}

// DefaultPaths lists the config files searched when none is given, in order
func DefaultPaths() []string {
	paths := []string{localFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, defaultDirName, defaultFileName))
	}
	return paths
}

// Load reads configuration from path, or from the first default path that
// exists. Missing files are not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v, "", Default().Settings())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		for _, candidate := range DefaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	return cfg, nil
}

// Save writes the config to path as YAML, creating parent directories
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	return os.WriteFile(path, data, 0600)
}

func setDefaults(v *viper.Viper, prefix string, settings map[string]interface{}) {
	for key, value := range settings {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaults(v, full, nested)
			continue
		}
		v.SetDefault(full, value)
	}
}
