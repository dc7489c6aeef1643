package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Platform PlatformConfig `yaml:"platform"`
	Verifier VerifierConfig `yaml:"verifier"`
}

// ServerConfig represents server identity configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents HTTP listener configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PlatformConfig represents the hosting platform itself: the domains that
// always resolve tenants by path, and the locale defaults for new tenants.
type PlatformConfig struct {
	// Domains are suffix-matched against the request host. Requests on
	// these hosts never resolve through the custom-domain directory.
	Domains       []string `yaml:"domains"`
	DefaultLocale string   `yaml:"default_locale"`
	SignInPath    string   `yaml:"sign_in_path"`
	ForbiddenPath string   `yaml:"forbidden_path"`
}

// VerifierConfig represents domain-verification worker configuration
type VerifierConfig struct {
	RecordPrefix  string        `yaml:"record_prefix"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// Load reads configuration from a YAML file and applies env overrides
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if domains := os.Getenv("PLATFORM_DOMAINS"); domains != "" {
		c.Platform.Domains = strings.Split(domains, ",")
	}
}

// applyDefaults fills zero values with sane defaults
func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8090
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if len(c.Platform.Domains) == 0 {
		c.Platform.Domains = []string{"localhost", "eventreg.app", "vercel.app"}
	}
	if c.Platform.DefaultLocale == "" {
		c.Platform.DefaultLocale = "ko"
	}
	if c.Platform.SignInPath == "" {
		c.Platform.SignInPath = "/auth/signin"
	}
	if c.Platform.ForbiddenPath == "" {
		c.Platform.ForbiddenPath = "/unauthorized"
	}
	if c.Verifier.RecordPrefix == "" {
		c.Verifier.RecordPrefix = "_eventreg-challenge"
	}
	if c.Verifier.MaxAttempts == 0 {
		c.Verifier.MaxAttempts = 5
	}
	if c.Verifier.RetryInterval == 0 {
		c.Verifier.RetryInterval = 30 * time.Second
	}
	if c.Verifier.LookupTimeout == 0 {
		c.Verifier.LookupTimeout = 10 * time.Second
	}
}
