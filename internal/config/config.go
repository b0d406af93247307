// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Supabase     SupabaseConfig     `yaml:"supabase"`
	Mail         MailConfig         `yaml:"mail"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres, sqlite
	ConnString string `yaml:"conn_string"`
}

// StorageConfig selects the object store for floor plans.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // fs, gcs, supabase
	Bucket          string `yaml:"bucket"`
	Root            string `yaml:"root"`
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
}

// SupabaseConfig is shared by the identity provider and Supabase storage.
type SupabaseConfig struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	Timeout        string `yaml:"timeout"`
}

// MailConfig configures the transactional mail API.
type MailConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
	Timeout string `yaml:"timeout"`
}

// ProvisioningConfig tunes the provisioning workflow.
type ProvisioningConfig struct {
	ResetRedirectURL    string `yaml:"reset_redirect_url"`
	LoginURL            string `yaml:"login_url"`
	CompensationTimeout string `yaml:"compensation_timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  "60s",
			ShutdownTimeout: "15s",
			MaxUploadBytes:  20 << 20,
		},
		Database: DatabaseConfig{
			Driver:     "postgres",
			ConnString: "postgres://localhost:5432/postgres?sslmode=disable",
		},
		Storage: StorageConfig{
			Backend: "fs",
			Bucket:  "floor-plans",
			Root:    "data/uploads",
		},
		Supabase: SupabaseConfig{
			Timeout: "30s",
		},
		Mail: MailConfig{
			BaseURL: "https://api.resend.com",
			From:    "Facility Service <no-reply@facilityops.local>",
			Timeout: "30s",
		},
		Provisioning: ProvisioningConfig{
			ResetRedirectURL:    "http://localhost:3000/reset-password",
			LoginURL:            "http://localhost:3000/login",
			CompensationTimeout: "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DB_CONN_STRING"); v != "" {
		c.Database.ConnString = v
	}
	if v := os.Getenv("FACILITYOPS_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("FACILITYOPS_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); v != "" {
		c.Supabase.ServiceRoleKey = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Mail.APIKey = v
	}
	if v := os.Getenv("FACILITYOPS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// DriverName maps the configured driver onto a registered database/sql
// driver name.
func (d DatabaseConfig) DriverName() (string, error) {
	switch strings.ToLower(d.Driver) {
	case "postgresql", "postgres", "db", "":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", d.Driver)
	}
}

// Validate reports every setting that prevents the service from starting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Database.DriverName(); err != nil {
		errs = append(errs, err)
	}
	if c.Database.ConnString == "" {
		errs = append(errs, errors.New("database.conn_string is required"))
	}
	if c.Supabase.URL == "" {
		errs = append(errs, errors.New("supabase.url is required"))
	}
	if c.Supabase.ServiceRoleKey == "" {
		errs = append(errs, errors.New("supabase.service_role_key is required"))
	}
	if c.Mail.APIKey == "" {
		errs = append(errs, errors.New("mail.api_key is required"))
	}
	if c.Mail.From == "" {
		errs = append(errs, errors.New("mail.from is required"))
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "fs", "gcs", "supabase", "":
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

// RequestTimeoutDuration returns the per-request provisioning deadline.
func (s ServerConfig) RequestTimeoutDuration() time.Duration {
	return parseDuration(s.RequestTimeout, 60*time.Second)
}

// ShutdownTimeoutDuration returns the graceful shutdown window.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(s.ShutdownTimeout, 15*time.Second)
}

// TimeoutDuration returns the HTTP timeout for Supabase calls.
func (s SupabaseConfig) TimeoutDuration() time.Duration {
	return parseDuration(s.Timeout, 30*time.Second)
}

// TimeoutDuration returns the HTTP timeout for mail calls.
func (m MailConfig) TimeoutDuration() time.Duration {
	return parseDuration(m.Timeout, 30*time.Second)
}

// CompensationTimeoutDuration bounds one compensation pass.
func (p ProvisioningConfig) CompensationTimeoutDuration() time.Duration {
	return parseDuration(p.CompensationTimeout, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
