package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AccountConfig holds the connection settings for a single mail
// account. The password is never stored here; it lives in the system
// keyring under the account name.
type AccountConfig struct {
	// Name is the unique label for this account.
	Name string `mapstructure:"name" yaml:"name"`

	// IMAPHost/IMAPPort locate the IMAP server for reads.
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`

	// SMTPHost/SMTPPort locate the SMTP server for sends.
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port" yaml:"smtp_port"`

	// Username authenticates against both servers.
	Username string `mapstructure:"username" yaml:"username"`

	// FromName is the display name used on outgoing messages.
	FromName string `mapstructure:"from_name" yaml:"from_name"`

	// TLS selects implicit TLS; false means STARTTLS.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// DispatchConfig holds the mass-send limits.
type DispatchConfig struct {
	// PerMessageLimit caps the number of recipients a single message
	// may carry (join mode).
	PerMessageLimit int `mapstructure:"per_message_limit" yaml:"per_message_limit"`

	// PerWindowLimit caps the number of messages sent per window
	// (each mode).
	PerWindowLimit int `mapstructure:"per_window_limit" yaml:"per_window_limit"`

	// WindowSec is the pacing window in seconds.
	WindowSec int `mapstructure:"window_sec" yaml:"window_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Dispatch DispatchConfig  `mapstructure:"dispatch" yaml:"dispatch"`

	// DatabasePath locates the SQLite metadata database.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Account returns the named account, or the sole configured account
// when name is empty.
func (c *AppConfig) Account(name string) (*AccountConfig, error) {
	if name == "" {
		if len(c.Accounts) == 1 {
			return &c.Accounts[0], nil
		}
		return nil, fmt.Errorf("config has %d accounts; pass -account", len(c.Accounts))
	}
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			return &c.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("no account %q in config", name)
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/mailflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailflow", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite database location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "mailflow.db")
	}
	return filepath.Join(home, ".config", "mailflow", "mailflow.db")
}

// defaultAppConfig returns a sensible default configuration. The
// dispatch limits mirror common provider caps: 500 recipients per
// message, 30 messages per minute.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Accounts: []AccountConfig{},
		Dispatch: DispatchConfig{
			PerMessageLimit: 500,
			PerWindowLimit:  30,
			WindowSec:       60,
		},
		DatabasePath: DefaultDatabasePath(),
		LogLevel:     "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("dispatch.per_message_limit", 500)
	v.SetDefault("dispatch.per_window_limit", 30)
	v.SetDefault("dispatch.window_sec", 60)
	v.SetDefault("database_path", DefaultDatabasePath())
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Apply port defaults for each account entry.
	for i := range cfg.Accounts {
		if cfg.Accounts[i].IMAPPort == "" {
			cfg.Accounts[i].IMAPPort = "993"
		}
		if cfg.Accounts[i].SMTPPort == "" {
			cfg.Accounts[i].SMTPPort = "465"
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("dispatch", cfg.Dispatch)
	v.Set("database_path", cfg.DatabasePath)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
