package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Sync     SyncConfig      `mapstructure:"sync"`
	AI       AIConfig        `mapstructure:"ai"`
	Notify   NotifyConfig    `mapstructure:"notify"`
	Accounts []AccountConfig `mapstructure:"accounts"`
	LogLevel string          `mapstructure:"log_level"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig holds database file locations.
type StorageConfig struct {
	IndexPath  string `mapstructure:"index_path"`
	VectorPath string `mapstructure:"vector_path"`
}

// SyncConfig bounds the historical backfill performed at startup.
type SyncConfig struct {
	WindowDays  int `mapstructure:"window_days"`
	MaxBackfill int `mapstructure:"max_backfill"`
}

// AIConfig holds generative model settings.
type AIConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
}

// NotifyConfig holds the optional outbound notification sinks.
type NotifyConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	WebhookURL      string `mapstructure:"webhook_url"`
}

// AccountConfig describes a single IMAP account to watch.
type AccountConfig struct {
	ID       string `mapstructure:"id"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
}

// Addr returns the host:port dial address for the account.
func (a AccountConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Valid reports whether the account carries the fields required to connect.
func (a AccountConfig) Valid() bool {
	return a.Host != "" && a.Username != "" && a.Password != ""
}

// Load reads configuration from the given YAML file (if present) with
// environment-variable overrides under the ONEBOX_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("storage.index_path", "/data/onebox/emails.db")
	v.SetDefault("storage.vector_path", "/data/onebox/knowledge.db")
	v.SetDefault("sync.window_days", 30)
	v.SetDefault("sync.max_backfill", 200)
	v.SetDefault("ai.model", "gemini-2.0-flash-lite")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("ONEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i := range cfg.Accounts {
		if cfg.Accounts[i].Port == 0 {
			cfg.Accounts[i].Port = 993
			cfg.Accounts[i].TLS = true
		}
		if cfg.Accounts[i].ID == "" {
			cfg.Accounts[i].ID = cfg.Accounts[i].Username
		}
	}

	return cfg, nil
}

// Validate checks settings that must be present for the process to start.
// Account entries are deliberately not validated here: invalid accounts are
// skipped at sync time, never fatal.
func (c *Config) Validate() error {
	if c.Storage.IndexPath == "" {
		return fmt.Errorf("storage.index_path is required")
	}
	if c.Storage.VectorPath == "" {
		return fmt.Errorf("storage.vector_path is required")
	}
	if c.Sync.WindowDays < 1 {
		return fmt.Errorf("sync.window_days must be at least 1")
	}
	return nil
}

// ValidAccounts filters out account entries missing credential fields,
// logging each skip.
func (c *Config) ValidAccounts(logger *logrus.Logger) []AccountConfig {
	accounts := make([]AccountConfig, 0, len(c.Accounts))
	for _, acc := range c.Accounts {
		if !acc.Valid() {
			logger.WithField("account", acc.ID).Warn("Skipping account with incomplete credentials")
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts
}

func isNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}
