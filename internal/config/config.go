// Package config loads settings for the server and the CLI.
//
// Precedence, lowest first: built-in defaults, a YAML file (--config or
// ./stash.yaml), then STASH_* environment variables. Nested keys map to
// env names with underscores: storage.driver → STASH_STORAGE_DRIVER.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STASH"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     LogConfig     `mapstructure:"log"`
	Client  ClientConfig  `mapstructure:"client"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	AllowGuest bool          `mapstructure:"allow_guest"`
	GitHub     GitHubConfig  `mapstructure:"github"`
}

type GitHubConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

// Enabled reports whether GitHub login can be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type NotifyConfig struct {
	SES SESConfig `mapstructure:"ses"`
}

type SESConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	From    string `mapstructure:"from"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ClientConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	SessionFile string `mapstructure:"session_file"`
}

// SetDefaults registers every key, which also lets AutomaticEnv find them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "data/stash.db")
	v.SetDefault("storage.postgres_url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.allow_guest", true)
	v.SetDefault("auth.github.client_id", "")
	v.SetDefault("auth.github.client_secret", "")
	v.SetDefault("auth.github.callback_url", "")

	v.SetDefault("notify.ses.enabled", false)
	v.SetDefault("notify.ses.region", "eu-north-1")
	v.SetDefault("notify.ses.from", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("client.base_url", "http://localhost:8080/api")
	v.SetDefault("client.session_file", "")
}

// New returns a viper instance with defaults and env binding, ready for a
// config file and flag bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (or ./stash.yaml when file is empty and one exists) into
// v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("stash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", describe(file), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("config: storage.postgres_url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Notify.SES.Enabled && c.Notify.SES.From == "" {
		return errors.New("config: notify.ses.from is required when SES is enabled")
	}
	return nil
}

func describe(file string) string {
	if file == "" {
		return "stash.yaml"
	}
	return file
}
