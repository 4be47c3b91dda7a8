package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full agent configuration.
type Config struct {
	DeviceID      string        `mapstructure:"device_id"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	NATS          NATSConfig    `mapstructure:"nats"`
	Poller        PollerConfig  `mapstructure:"poller"`
	Static        StaticConfig  `mapstructure:"static"`
	Cleaner       CleanerConfig `mapstructure:"cleaner"`
	Logging       LoggingConfig `mapstructure:"logging"`
}

// NATSConfig controls the optional telemetry uplink.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URLs          []string      `mapstructure:"urls"`
	Auth          AuthConfig    `mapstructure:"auth"`
	TLS           TLSConfig     `mapstructure:"tls"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout"`
}

// AuthConfig selects the NATS authentication mechanism.
type AuthConfig struct {
	Type      string `mapstructure:"type"` // none, token, userpass, creds
	Token     string `mapstructure:"token"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	CredsFile string `mapstructure:"creds_file"`
}

// TLSConfig holds the TLS material for the NATS connection.
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// PollerConfig controls the dynamic metrics loop.
type PollerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ErrorInterval time.Duration `mapstructure:"error_interval"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	GPUFreshness  time.Duration `mapstructure:"gpu_freshness"`
	Source        string        `mapstructure:"source"` // builtin or exporter
	ExporterURL   string        `mapstructure:"exporter_url"`
	PrimaryVolume string        `mapstructure:"primary_volume"`
}

// StaticConfig controls the one-shot hardware inventory load.
type StaticConfig struct {
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables scheduled refresh
}

// CleanerConfig controls the scheduled system cleanup job.
type CleanerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	TempDirs       []string      `mapstructure:"temp_dirs"`
	RecycleBin     bool          `mapstructure:"recycle_bin"`
	MemoryOptimize bool          `mapstructure:"memory_optimize"`
}

// LoggingConfig controls the zap logger and its rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result. An absent file is not an error; the
// defaults form a runnable local-only configuration.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SYSDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(GetDefaultConfigPath())
	}

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_id", defaultDeviceID())
	v.SetDefault("subject_prefix", "sysdeck")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.auth.type", "none")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 5*time.Second)
	v.SetDefault("nats.drain_timeout", 10*time.Second)

	v.SetDefault("poller.interval", 8*time.Second)
	v.SetDefault("poller.error_interval", 5*time.Second)
	v.SetDefault("poller.query_timeout", 10*time.Second)
	v.SetDefault("poller.gpu_freshness", 10*time.Second)
	v.SetDefault("poller.source", "builtin")

	v.SetDefault("static.query_timeout", 10*time.Second)
	v.SetDefault("static.refresh_interval", 24*time.Hour)

	v.SetDefault("cleaner.enabled", false)
	v.SetDefault("cleaner.interval", 6*time.Hour)
	v.SetDefault("cleaner.recycle_bin", true)
	v.SetDefault("cleaner.memory_optimize", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.console", true)

	UpdateConfigDefaults(v)
}

func defaultDeviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "sysdeck-host"
	}
	// Hostnames can contain dots; subject tokens cannot.
	return strings.ReplaceAll(hostname, ".", "-")
}

// validate checks the whole configuration and returns the first problem
// found.
func validate(cfg *Config) error {
	if err := validateDeviceID(cfg.DeviceID); err != nil {
		return err
	}
	if err := validateSubjectPrefix(cfg.SubjectPrefix); err != nil {
		return err
	}
	if cfg.NATS.Enabled {
		if err := validateNATS(&cfg.NATS); err != nil {
			return err
		}
	}
	if err := validatePoller(&cfg.Poller); err != nil {
		return err
	}
	if err := validateStatic(&cfg.Static); err != nil {
		return err
	}
	if err := validateCleaner(&cfg.Cleaner); err != nil {
		return err
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	return nil
}

func validateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("device_id is required")
	}
	for _, r := range id {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_'
		if !valid {
			return fmt.Errorf("device_id must contain only alphanumeric characters, dashes and underscores")
		}
	}
	return nil
}

func validateSubjectPrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("subject_prefix is required")
	}
	if len(prefix) > 50 {
		return fmt.Errorf("subject_prefix must not exceed 50 characters")
	}
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("subject_prefix cannot start or end with a dot")
	}
	if strings.Contains(prefix, "..") {
		return fmt.Errorf("subject_prefix: consecutive dots not allowed")
	}
	for _, token := range strings.Split(prefix, ".") {
		for _, r := range token {
			valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || r == '-' || r == '_'
			if !valid {
				return fmt.Errorf("subject_prefix token %q contains invalid characters", token)
			}
		}
	}
	return nil
}

func validateNATS(cfg *NATSConfig) error {
	if len(cfg.URLs) == 0 {
		return fmt.Errorf("nats.urls is required when nats is enabled")
	}

	switch cfg.Auth.Type {
	case "none":
	case "token":
		if cfg.Auth.Token == "" {
			return fmt.Errorf("nats.auth.token is required for token auth")
		}
	case "userpass":
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return fmt.Errorf("nats.auth: username and password are required for userpass auth")
		}
	case "creds":
		if cfg.Auth.CredsFile == "" {
			return fmt.Errorf("nats.auth.creds_file is required for creds auth")
		}
	default:
		return fmt.Errorf("invalid auth type: %s", cfg.Auth.Type)
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile == "" {
			return fmt.Errorf("nats.tls.key_file is required when cert_file is set")
		}
		if cfg.TLS.KeyFile != "" && cfg.TLS.CertFile == "" {
			return fmt.Errorf("nats.tls.cert_file is required when key_file is set")
		}
		if cfg.TLS.CertFile != "" {
			if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
				return fmt.Errorf("nats.tls: certificate file not found: %s", cfg.TLS.CertFile)
			}
		}
		if cfg.TLS.KeyFile != "" {
			if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
				return fmt.Errorf("nats.tls: key file not found: %s", cfg.TLS.KeyFile)
			}
		}
		if cfg.TLS.CAFile != "" {
			if _, err := os.Stat(cfg.TLS.CAFile); err != nil {
				return fmt.Errorf("nats.tls: CA file not found: %s", cfg.TLS.CAFile)
			}
		}
	}

	return nil
}

func validatePoller(cfg *PollerConfig) error {
	if cfg.Interval < time.Second {
		return fmt.Errorf("poller.interval must be at least 1 second")
	}
	if cfg.ErrorInterval < time.Second {
		return fmt.Errorf("poller.error_interval must be at least 1 second")
	}
	if cfg.ErrorInterval > cfg.Interval {
		return fmt.Errorf("poller.error_interval must not exceed poller.interval")
	}
	if cfg.QueryTimeout < time.Second {
		return fmt.Errorf("poller.query_timeout must be at least 1 second")
	}
	if cfg.QueryTimeout > time.Minute {
		return fmt.Errorf("poller.query_timeout must not exceed 1 minute")
	}
	if cfg.GPUFreshness < 0 {
		return fmt.Errorf("poller.gpu_freshness must not be negative")
	}

	switch cfg.Source {
	case "builtin":
	case "exporter":
		if cfg.ExporterURL == "" {
			return fmt.Errorf("poller.exporter_url is required for the exporter source")
		}
	default:
		return fmt.Errorf("invalid poller source: %s", cfg.Source)
	}
	return nil
}

func validateStatic(cfg *StaticConfig) error {
	if cfg.QueryTimeout < time.Second {
		return fmt.Errorf("static.query_timeout must be at least 1 second")
	}
	if cfg.QueryTimeout > time.Minute {
		return fmt.Errorf("static.query_timeout must not exceed 1 minute")
	}
	if cfg.RefreshInterval != 0 && cfg.RefreshInterval < time.Minute {
		return fmt.Errorf("static.refresh_interval must be at least 1 minute when set")
	}
	return nil
}

func validateCleaner(cfg *CleanerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Interval < time.Minute {
		return fmt.Errorf("cleaner.interval must be at least 1 minute")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	if cfg.File == "" && !cfg.Console {
		return fmt.Errorf("logging: at least one of file or console output is required")
	}
	if cfg.File != "" {
		if cfg.MaxSizeMB <= 0 {
			return fmt.Errorf("logging.max_size_mb must be positive")
		}
		if cfg.MaxBackups < 0 {
			return fmt.Errorf("logging.max_backups must not be negative")
		}
	}
	return nil
}
