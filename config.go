package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEmployeesURL = "https://gist.githubusercontent.com/witalijolchowik-coder/3f56631351c945b27d54f05239ecd7ea/raw/44aa34f8ca86c46927214a259ec981e05621304c/gistfile1.txt"
	defaultAgenciesURL  = "https://gist.githubusercontent.com/witalijolchowik-coder/3f56631351c945b27d54f05239ecd7ea/raw/44aa34f8ca86c46927214a259ec981e05621304c/gistfile2.txt"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Mail     MailConfig     `yaml:"mail"`
	NATS     NATSConfig     `yaml:"nats"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RemoteConfig struct {
	EmployeesURL string        `yaml:"employees_url"`
	AgenciesURL  string        `yaml:"agencies_url"`
	Timeout      time.Duration `yaml:"-"`
	TimeoutRaw   string        `yaml:"timeout"`
}

type MailConfig struct {
	Recipients `yaml:",inline"`
	// Opener is the command the mailto URL is appended to.
	Opener []string `yaml:"opener"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type ExportConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: defaultDBPath()},
		Remote: RemoteConfig{
			EmployeesURL: defaultEmployeesURL,
			AgenciesURL:  defaultAgenciesURL,
			TimeoutRaw:   "10s",
		},
		Mail: MailConfig{Recipients: DefaultRecipients()},
		Export: ExportConfig{S3: S3Config{
			Key:    "shiftswap/journal.jsonl",
			Region: "us-east-1",
		}},
		Log: LogConfig{Level: "warn"},
	}
}

func defaultDBPath() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "shiftswap", "database.db")
}

// DefaultConfigPath honours SHIFTSWAP_CONFIG, then XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	if p := os.Getenv("SHIFTSWAP_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "shiftswap", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// Environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHIFTSWAP_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SHIFTSWAP_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("SHIFTSWAP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}

	timeout, err := parseDurationAllowEmpty(c.Remote.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: remote.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c.Remote.Timeout = timeout

	if len(c.Mail.To) == 0 {
		return fmt.Errorf("config: mail.to must list at least one address")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", l.Level)
	}
}
