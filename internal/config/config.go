// Package config loads gatekeeper settings from defaults, an optional TOML file and
// environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as "5m", "24h" in TOML files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string such as "90s".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText formats the duration the way UnmarshalText reads it.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete service configuration
type Config struct {
	Addr    string        `toml:"addr"`
	Token   TokenConfig   `toml:"token"`
	Captcha CaptchaConfig `toml:"captcha"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`
	Admin   AdminConfig   `toml:"admin"`

	DatabaseURL string `toml:"database_url"`
	BcryptCost  int    `toml:"bcrypt_cost"`
}

// TokenConfig controls token signing and lifetime
type TokenConfig struct {
	SigningKey string   `toml:"signing_key"`
	Issuer     string   `toml:"issuer"`
	TTL        Duration `toml:"ttl"`
}

// CaptchaConfig controls challenge lifetime and image size
type CaptchaConfig struct {
	TTL    Duration `toml:"ttl"`
	Length int      `toml:"length"`
	Width  int      `toml:"width"`
	Height int      `toml:"height"`
}

// StoreConfig selects where revocations and challenges are kept
type StoreConfig struct {
	// Backend is "memory" or "redis"
	Backend       string   `toml:"backend"`
	RedisURL      string   `toml:"redis_url"`
	SweepInterval Duration `toml:"sweep_interval"`
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AdminConfig seeds the directory with one admin account so a fresh instance is usable
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

const devSigningKey = "dev-secret-key-change-in-production"

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Addr: ":9000",
		Token: TokenConfig{
			SigningKey: devSigningKey,
			Issuer:     "gatekeeper",
			TTL:        Duration{24 * time.Hour},
		},
		Captcha: CaptchaConfig{
			TTL:    Duration{5 * time.Minute},
			Length: 4,
			Width:  120,
			Height: 40,
		},
		Store: StoreConfig{
			Backend:       "memory",
			SweepInterval: Duration{time.Minute},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		BcryptCost: 12,
	}
}

// Load builds the configuration. When path is empty GATEKEEPER_CONFIG is consulted; with
// neither set only defaults and environment variables apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GATEKEEPER_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays environment variables on the configuration.
func (c *Config) ApplyEnvOverrides() error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setString("GATEKEEPER_ADDR", &c.Addr)
	setString("JWT_SIGNING_KEY", &c.Token.SigningKey)
	setString("JWT_ISSUER", &c.Token.Issuer)
	setString("REDIS_URL", &c.Store.RedisURL)
	setString("STORE_BACKEND", &c.Store.Backend)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("ADMIN_USERNAME", &c.Admin.Username)
	setString("ADMIN_PASSWORD", &c.Admin.Password)

	durations := map[string]*Duration{
		"TOKEN_TTL":      &c.Token.TTL,
		"CAPTCHA_TTL":    &c.Captcha.TTL,
		"SWEEP_INTERVAL": &c.Store.SweepInterval,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
		}
	}

	ints := map[string]*int{
		"CAPTCHA_LENGTH": &c.Captcha.Length,
		"BCRYPT_COST":    &c.BcryptCost,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = n
		}
	}

	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Token.SigningKey == "" {
		problems = append(problems, "token signing key is empty")
	}
	if c.Token.TTL.Duration <= 0 {
		problems = append(problems, "token ttl must be positive")
	}
	if c.Captcha.TTL.Duration <= 0 {
		problems = append(problems, "captcha ttl must be positive")
	}
	if c.Captcha.Length < 4 || c.Captcha.Length > 6 {
		problems = append(problems, "captcha length must be between 4 and 6")
	}
	if c.Store.SweepInterval.Duration <= 0 {
		problems = append(problems, "sweep interval must be positive")
	}
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			problems = append(problems, "redis backend requires a redis url")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store backend %q", c.Store.Backend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesDevSigningKey reports whether the built-in development key is in use.
func (c *Config) UsesDevSigningKey() bool {
	return c.Token.SigningKey == devSigningKey
}
