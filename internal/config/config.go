package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the journal API.
type Config struct {
	Env         string      `mapstructure:"env"`
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
	Auth        Auth        `mapstructure:"auth"`
	Logger      Logger      `mapstructure:"logger"`
	Screenshots Screenshots `mapstructure:"screenshots"`
	Cache       Cache       `mapstructure:"cache"`
	Cleanup     Cleanup     `mapstructure:"cleanup"`
	RateLimit   RateLimit   `mapstructure:"rate_limit"`
	Equity      Equity      `mapstructure:"equity"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the database.
type Database struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

// Auth holds the JWT settings and the API credentials allowed to get tokens.
type Auth struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	Credentials []Credential  `mapstructure:"credentials"`
}

// Credential maps an API key pair to the journal user it signs in as.
type Credential struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Email     string `mapstructure:"email"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Screenshots holds the configuration for screenshot storage.
type Screenshots struct {
	Driver   string     `mapstructure:"driver"` // local or cloudinary
	Folder   string     `mapstructure:"folder"`
	MaxBytes int64      `mapstructure:"max_bytes"`
	Local    Local      `mapstructure:"local"`
	Cloud    Cloudinary `mapstructure:"cloudinary"`
}

// Local is the on-disk screenshot store.
type Local struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// Cloudinary holds the Cloudinary account used for screenshot uploads.
type Cloudinary struct {
	CloudName string        `mapstructure:"cloud_name"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Cache holds the analytics cache settings.
type Cache struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxCost int64         `mapstructure:"max_cost"`
}

// Cleanup holds the screenshot deletion retry settings.
type Cleanup struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// RateLimit is expressed in requests per minute per client and route group.
type RateLimit struct {
	Auth   float64 `mapstructure:"auth"`
	Write  float64 `mapstructure:"write"`
	Export float64 `mapstructure:"export"`
}

// Equity configures the dashboard equity curve.
type Equity struct {
	Baseline  float64 `mapstructure:"baseline"`
	PipValue  float64 `mapstructure:"pip_value"`
	LossDelta string  `mapstructure:"loss_delta"` // realized or legacy
}

// IsProduction reports whether the service runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// LoadConfig reads configuration from config.yml in path (optional) and from
// environment variables, which take precedence (e.g. SERVER_PORT).
func LoadConfig(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values that have no safe fallback.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Screenshots.Driver {
	case "local", "cloudinary":
	default:
		return fmt.Errorf("unsupported screenshots driver %q", c.Screenshots.Driver)
	}
	switch c.Equity.LossDelta {
	case "realized", "legacy":
	default:
		return fmt.Errorf("unsupported equity loss_delta %q", c.Equity.LossDelta)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("auth.jwt_secret must be changed in production")
	}
	return nil
}

const defaultJWTSecret = "klear-journal-dev-secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "journal.db")

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("screenshots.driver", "local")
	v.SetDefault("screenshots.folder", "trading-journal")
	v.SetDefault("screenshots.max_bytes", 10<<20)
	v.SetDefault("screenshots.local.dir", "uploads")
	v.SetDefault("screenshots.local.base_url", "http://localhost:8080/uploads")
	v.SetDefault("screenshots.cloudinary.base_url", "https://api.cloudinary.com/v1_1")
	v.SetDefault("screenshots.cloudinary.timeout", 30*time.Second)

	v.SetDefault("cache.ttl", 60*time.Second)
	v.SetDefault("cache.max_cost", 1<<12)

	v.SetDefault("cleanup.interval", 5*time.Minute)
	v.SetDefault("cleanup.max_attempts", 5)

	v.SetDefault("rate_limit.auth", 10)
	v.SetDefault("rate_limit.write", 100)
	v.SetDefault("rate_limit.export", 30)

	v.SetDefault("equity.baseline", 1000)
	v.SetDefault("equity.pip_value", 10)
	v.SetDefault("equity.loss_delta", "realized")
}
