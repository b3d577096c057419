package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"go.uber.org/fx"
)

// Config holds all configuration for the portal
type Config struct {
	HTTP    HTTPConfig
	Gateway GatewayConfig
	Storage StorageConfig
	Session SessionConfig
	Logging LoggingConfig
}

// HTTPConfig holds the web server configuration
type HTTPConfig struct {
	Addr         string `env:"HTTP_ADDR"      envDefault:":8000"`
	SiteURL      string `env:"SITE_URL"       envDefault:"http://localhost:8000"`
	CookieSecure bool   `env:"COOKIE_SECURE"  envDefault:"false"`
	// OperatorEmail is the single identity allowed into the admin console.
	OperatorEmail string `env:"OPERATOR_EMAIL" envDefault:"reesmonty6@gmail.com"`
	BodyLimit     string `env:"HTTP_BODY_LIMIT" envDefault:"10M"`
}

// GatewayConfig holds the hosted data platform endpoints and keys
type GatewayConfig struct {
	URL         string        `env:"GATEWAY_URL,required,notEmpty"`
	AnonKey     string        `env:"GATEWAY_ANON_KEY,required,notEmpty"`
	JWTSecret   string        `env:"GATEWAY_JWT_SECRET,required,notEmpty"`
	Timeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
}

// StorageConfig holds the S3-compatible blob storage configuration
type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT,required,notEmpty"`
	AccessKey string `env:"STORAGE_ACCESS_KEY,required,notEmpty"`
	SecretKey string `env:"STORAGE_SECRET_KEY,required,notEmpty"`
	Region    string `env:"STORAGE_REGION"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"news-images"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
}

// SessionConfig holds session persistence configuration
type SessionConfig struct {
	DSN        string        `env:"SESSION_DB"          envDefault:"file:sessions.db"`
	HolderIdle time.Duration `env:"SESSION_HOLDER_IDLE" envDefault:"30m"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config        *Config
	HTTPConfig    *HTTPConfig
	GatewayConfig *GatewayConfig
	StorageConfig *StorageConfig
	SessionConfig *SessionConfig
	LoggingConfig *LoggingConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:        cfg,
		HTTPConfig:    &cfg.HTTP,
		GatewayConfig: &cfg.Gateway,
		StorageConfig: &cfg.Storage,
		SessionConfig: &cfg.Session,
		LoggingConfig: &cfg.Logging,
	}, nil
}

// Load loads configuration from the process environment, reading a .env file first if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

// LoadFrom loads configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.Gateway.URL = strings.TrimRight(cfg.Gateway.URL, "/")
	cfg.HTTP.SiteURL = strings.TrimRight(cfg.HTTP.SiteURL, "/")
	if cfg.Storage.PublicURL == "" {
		cfg.Storage.PublicURL = cfg.Gateway.URL + "/storage/v1/object/public"
	}
	cfg.Storage.PublicURL = strings.TrimRight(cfg.Storage.PublicURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := absoluteURL("GATEWAY_URL", c.Gateway.URL); err != nil {
		return err
	}
	if err := absoluteURL("SITE_URL", c.HTTP.SiteURL); err != nil {
		return err
	}
	if err := absoluteURL("STORAGE_PUBLIC_URL", c.Storage.PublicURL); err != nil {
		return err
	}
	if strings.Contains(c.Storage.Endpoint, "/") {
		return fmt.Errorf("STORAGE_ENDPOINT must be host[:port] without scheme or path, got %q", c.Storage.Endpoint)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}
	if _, err := mail.ParseAddress(c.HTTP.OperatorEmail); err != nil {
		return fmt.Errorf("invalid OPERATOR_EMAIL: %w", err)
	}
	if n, err := bytes.Parse(c.HTTP.BodyLimit); err != nil || n <= 0 {
		return fmt.Errorf("HTTP_BODY_LIMIT must be a positive size such as 10M, got %q", c.HTTP.BodyLimit)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.Session.HolderIdle <= 0 {
		return fmt.Errorf("SESSION_HOLDER_IDLE must be positive")
	}
	return nil
}

func absoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
