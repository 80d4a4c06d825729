// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package config loads server configuration from defaults, an optional YAML
// file and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/Skets-max/Project-473/internal/auth"
)

// Environment variables read after the file and flags have been applied,
// so secrets need not be written to disk.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvJWTSecret   = "NEIGHBORWATCH_JWT_SECRET" //nolint:gosec // variable name, not a credential
	EnvResendKey   = "RESEND_API_KEY"
)

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Policy   PolicyConfig   `koanf:"policy"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr         string   `koanf:"addr"`
	BaseURL      string   `koanf:"base_url"`
	CORSOrigins  []string `koanf:"cors_origins"`
	CookieName   string   `koanf:"cookie_name"`
	CookieSecure bool     `koanf:"cookie_secure"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects the log format.
type LogConfig struct {
	Format string `koanf:"format"`
}

// DatabaseConfig selects the credential store.
type DatabaseConfig struct {
	Driver         string `koanf:"driver"`
	URL            string `koanf:"url"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
	ConnectRetries uint64 `koanf:"connect_retries"`
}

// SessionConfig configures session storage and tokens.
type SessionConfig struct {
	Store     string        `koanf:"store"`
	TTL       time.Duration `koanf:"ttl"`
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
}

// RedisConfig is used when Session.Store is "redis".
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig holds account policy.
type AuthConfig struct {
	RegistrationStatus    string        `koanf:"registration_status"`
	RequireApproval       bool          `koanf:"require_approval"`
	AdminSkipVerification bool          `koanf:"admin_skip_verification"`
	TokenTTL              time.Duration `koanf:"token_ttl"`
}

// MailConfig selects how verification and reset links are delivered.
type MailConfig struct {
	Provider      string `koanf:"provider"`
	From          string `koanf:"from"`
	ResendAPIKey  string `koanf:"resend_api_key"`
	ResendBaseURL string `koanf:"resend_base_url"`
}

// PolicyConfig points at the authorization table. Empty uses the built-in one.
type PolicyConfig struct {
	File string `koanf:"file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:       ":8080",
			BaseURL:    "http://localhost:8080",
			CookieName: "neighborhood_watch_session",
		},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:      LogConfig{Format: "json"},
		Database: DatabaseConfig{Driver: "postgres", AutoMigrate: true, ConnectRetries: 5},
		Session: SessionConfig{
			Store:  "database",
			TTL:    auth.DefaultSessionTTL,
			Issuer: auth.DefaultIssuer,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Auth: AuthConfig{
			RegistrationStatus: string(auth.StatusPending),
			TokenTTL:           auth.DefaultTokenTTL,
		},
		Mail: MailConfig{Provider: "log", From: "Neighborhood Watch <no-reply@localhost>"},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":             "http.addr",
	"base-url":         "http.base_url",
	"metrics-addr":     "metrics.addr",
	"log-format":       "log.format",
	"db-driver":        "database.driver",
	"database-url":     "database.url",
	"auto-migrate":     "database.auto_migrate",
	"session-store":    "session.store",
	"session-ttl":      "session.ttl",
	"redis-addr":       "redis.addr",
	"mail-provider":    "mail.provider",
	"policy-file":      "policy.file",
	"require-approval": "auth.require_approval",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("base-url", d.HTTP.BaseURL, "public base URL used in mailed links")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("db-driver", d.Database.Driver, "database driver (postgres, mysql, sqlite)")
	fs.String("database-url", "", "database URL or DSN (default $"+EnvDatabaseURL+")")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply schema migrations on startup")
	fs.String("session-store", d.Session.Store, "session store (database, redis)")
	fs.Duration("session-ttl", d.Session.TTL, "session lifetime")
	fs.String("redis-addr", d.Redis.Addr, "redis address when session-store is redis")
	fs.String("mail-provider", d.Mail.Provider, "mail provider (log, resend)")
	fs.String("policy-file", "", "authorization policy YAML (default built-in)")
	fs.Bool("require-approval", d.Auth.RequireApproval, "keep verified accounts pending until an admin activates them")
}

// Load builds a Config. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode configuration").Wrap(err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" && c.Database.URL == "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" && c.Session.JWTSecret == "" {
		c.Session.JWTSecret = v
	}
	if v := os.Getenv(EnvResendKey); v != "" && c.Mail.ResendAPIKey == "" {
		c.Mail.ResendAPIKey = v
	}
}

// Validate rejects unknown enum values, missing required settings and short secrets.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if !oneOf(c.Log.Format, "json", "text") {
		return invalid("log.format", "log.format must be json or text, got %q", c.Log.Format)
	}
	if !oneOf(c.Database.Driver, "postgres", "mysql", "sqlite") {
		return invalid("database.driver", "unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database.url is required (or set %s)", EnvDatabaseURL)
	}
	if !oneOf(c.Session.Store, "database", "redis") {
		return invalid("session.store", "session.store must be database or redis, got %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "session.ttl must be positive")
	}
	if len(c.Session.JWTSecret) < auth.MinSigningKeyLength {
		return invalid("session.jwt_secret", "session.jwt_secret must be at least %d bytes (or set %s)",
			auth.MinSigningKeyLength, EnvJWTSecret)
	}
	if c.Session.Store == "redis" && c.Redis.Addr == "" {
		return invalid("redis.addr", "redis.addr is required when session.store is redis")
	}
	if _, err := auth.ParseStatus(c.Auth.RegistrationStatus); err != nil || c.Auth.RegistrationStatus == string(auth.StatusSuspended) {
		return invalid("auth.registration_status", "auth.registration_status must be pending or active, got %q", c.Auth.RegistrationStatus)
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "auth.token_ttl must be positive")
	}
	if !oneOf(c.Mail.Provider, "log", "resend") {
		return invalid("mail.provider", "mail.provider must be log or resend, got %q", c.Mail.Provider)
	}
	if c.Mail.Provider == "resend" && c.Mail.ResendAPIKey == "" {
		return invalid("mail.resend_api_key", "mail.resend_api_key is required (or set %s)", EnvResendKey)
	}
	return nil
}

// AuthPolicy converts the account settings into an auth.Policy.
func (c *Config) AuthPolicy() auth.Policy {
	p := auth.DefaultPolicy()
	p.RegistrationStatus = auth.Status(c.Auth.RegistrationStatus)
	p.RequireApproval = c.Auth.RequireApproval
	p.AdminSkipVerification = c.Auth.AdminSkipVerification
	p.SessionTTL = c.Session.TTL
	p.TokenTTL = c.Auth.TokenTTL
	return p
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}
