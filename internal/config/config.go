// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

// Package config loads PetAdopt settings.
//
// Sources are layered, later ones winning: built-in defaults, an optional YAML
// file, an optional .env file, PETADOPT_* environment variables, and finally
// command-line flags the user actually set. Nested keys in environment
// variables use a double underscore, so PETADOPT_AUTH__TOKEN_SECRET sets
// auth.token_secret.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/logging"
	"github.com/petadopt/petadopt/internal/mail"
	"github.com/petadopt/petadopt/internal/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PETADOPT_"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the public HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	SecureCookies   bool          `koanf:"secure_cookies"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// AuthConfig configures accounts, tokens and sessions.
type AuthConfig struct {
	BaseURL         string        `koanf:"base_url"`
	TokenSecret     string        `koanf:"token_secret"`
	TokenIssuer     string        `koanf:"token_issuer"`
	VerificationTTL time.Duration `koanf:"verification_ttl"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
	RememberTTL     time.Duration `koanf:"remember_ttl"`
	RequireVerified bool          `koanf:"require_verified"`
	StoreTimeout    time.Duration `koanf:"store_timeout"`
	Argon2          Argon2Config  `koanf:"argon2"`
}

// Argon2Config holds the password hashing cost parameters.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
	SaltLen   uint32 `koanf:"salt_len"`
	KeyLen    uint32 `koanf:"key_len"`
}

// MailConfig configures outbound email. An empty Host logs mail instead of sending it.
type MailConfig struct {
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
	From       string        `koanf:"from"`
	StartTLS   bool          `koanf:"starttls"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries uint64        `koanf:"max_retries"`
	QueueSize  int           `koanf:"queue_size"`
	Workers    int           `koanf:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in defaults. The token secret has no default.
func Default() Config {
	authDefaults := auth.DefaultConfig()
	argon := auth.DefaultArgon2Params()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectTimeout: store.DefaultConnectTimeout,
		},
		Auth: AuthConfig{
			BaseURL:         authDefaults.BaseURL,
			TokenIssuer:     "petadopt",
			VerificationTTL: authDefaults.VerificationTTL,
			SessionTTL:      authDefaults.SessionTTL,
			RememberTTL:     authDefaults.RememberTTL,
			RequireVerified: authDefaults.RequireVerified,
			StoreTimeout:    authDefaults.StoreTimeout,
			Argon2: Argon2Config{
				Time:      argon.Time,
				MemoryKiB: argon.MemoryKiB,
				Threads:   argon.Threads,
				SaltLen:   argon.SaltLen,
				KeyLen:    argon.KeyLen,
			},
		},
		Mail: MailConfig{
			Port:       587,
			From:       "no-reply@petadopt.local",
			StartTLS:   true,
			Timeout:    mail.DefaultSendTimeout,
			MaxRetries: mail.DefaultMaxRetries,
			QueueSize:  mail.DefaultQueueSize,
			Workers:    mail.DefaultWorkers,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// LoadOptions selects the optional sources of Load.
type LoadOptions struct {
	// File is a YAML config file. Empty skips it.
	File string
	// DotEnv is a .env file loaded into the process environment without
	// overriding variables that are already set. A missing file is ignored.
	DotEnv string
	// Flags are applied last, but only the ones the user changed.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys, e.g. "addr" to "server.addr".
	// Flags not listed are ignored.
	FlagKeys map[string]string
}

// Load builds a validated Config from defaults and the configured sources.
func Load(opts LoadOptions) (Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.File).Wrap(err)
		}
	}

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !os.IsNotExist(err) {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.DotEnv).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := opts.FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps PETADOPT_AUTH__TOKEN_SECRET to auth.token_secret and splits
// comma-separated lists.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks settings that would otherwise fail late or insecurely.
// Errors from the auth and mail sections keep their own codes.
func (c Config) Validate() error {
	if len(c.Auth.TokenSecret) < auth.MinTokenSecretLen {
		return oops.Code("CONFIG_INVALID").
			With("field", "auth.token_secret").
			Errorf("auth.token_secret must be at least %d bytes", auth.MinTokenSecretLen)
	}
	if err := c.AuthPolicy().Validate(); err != nil {
		return oops.With("field", "auth").Wrap(err)
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return oops.With("field", "auth.argon2").Wrap(err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("field", "log.format").
			Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("field", "server.addr").Errorf("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "server.shutdown_timeout").
			Errorf("server.shutdown_timeout must be positive")
	}
	if c.Mail.Host != "" {
		if err := c.SMTP().Validate(); err != nil {
			return oops.With("field", "mail").Wrap(err)
		}
	}
	return nil
}

// AuthPolicy converts the auth section into an auth.Config.
func (c Config) AuthPolicy() auth.Config {
	return auth.Config{
		BaseURL:         c.Auth.BaseURL,
		VerificationTTL: c.Auth.VerificationTTL,
		SessionTTL:      c.Auth.SessionTTL,
		RememberTTL:     c.Auth.RememberTTL,
		RequireVerified: c.Auth.RequireVerified,
		StoreTimeout:    c.Auth.StoreTimeout,
	}
}

// Argon2Params converts the hashing parameters.
func (c Config) Argon2Params() auth.Argon2Params {
	a := c.Auth.Argon2
	return auth.Argon2Params{
		Time:      a.Time,
		MemoryKiB: a.MemoryKiB,
		Threads:   a.Threads,
		SaltLen:   a.SaltLen,
		KeyLen:    a.KeyLen,
	}
}

// SMTP converts the mail section into transport settings.
func (c Config) SMTP() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.Mail.Host,
		Port:     c.Mail.Port,
		Username: c.Mail.Username,
		Password: c.Mail.Password,
		From:     c.Mail.From,
		StartTLS: c.Mail.StartTLS,
		Timeout:  c.Mail.Timeout,
	}
}

// Dispatcher converts the mail section into queueing settings.
func (c Config) Dispatcher() mail.DispatcherConfig {
	return mail.DispatcherConfig{
		QueueSize:   c.Mail.QueueSize,
		Workers:     c.Mail.Workers,
		SendTimeout: c.Mail.Timeout,
		MaxRetries:  c.Mail.MaxRetries,
	}
}

// Pool converts the database section into pool settings.
func (c Config) Pool() store.PoolConfig {
	return store.PoolConfig{
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		ConnectTimeout:  c.Database.ConnectTimeout,
	}
}
