// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/pkg/errutil"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", secret)

	cfg, err := config.Load(config.LoadOptions{})
	require.NoError(t, err)

	want := config.Default()
	want.Auth.TokenSecret = secret
	want.Database.URL = os.Getenv("DATABASE_URL")
	assert.Equal(t, want, cfg)
	assert.True(t, cfg.Auth.RequireVerified)
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerificationTTL)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", "")
	_, err := config.Load(config.LoadOptions{})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "field", "auth.token_secret")
}

func TestLoad_LayerPrecedence(t *testing.T) {
	path := writeFile(t, "petadopt.yaml", `
server:
  addr: ":9000"
  cors_origins: ["https://a.example"]
auth:
  token_secret: "`+secret+`"
  session_ttl: 2h
  argon2:
    memory_kib: 32768
log:
  level: debug
  format: text
mail:
  host: smtp.example.com
  username: mailer
`)
	t.Setenv("PETADOPT_SERVER__ADDR", ":9100")
	t.Setenv("PETADOPT_AUTH__REQUIRE_VERIFIED", "false")
	t.Setenv("PETADOPT_SERVER__CORS_ORIGINS", "https://b.example, https://c.example")
	t.Setenv("PETADOPT_MAIL__PASSWORD", "hunter2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":9200"}))

	cfg, err := config.Load(config.LoadOptions{
		File:     path,
		Flags:    flags,
		FlagKeys: map[string]string{"addr": "server.addr", "log-level": "log.level"},
	})
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.Server.Addr, "changed flag wins over env")
	assert.Equal(t, "debug", cfg.Log.Level, "unchanged flag does not override the file")
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Auth.RequireVerified)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, uint32(32768), cfg.Auth.Argon2.MemoryKiB)
	assert.Equal(t, uint32(1), cfg.Auth.Argon2.Time, "unset nested keys keep defaults")
	assert.Equal(t, "hunter2", cfg.Mail.Password)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RememberTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", "PETADOPT_AUTH__TOKEN_SECRET="+secret+"\nPETADOPT_DATABASE__URL=postgres://u:p@db/petadopt\n")
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", "")
	require.NoError(t, os.Unsetenv("PETADOPT_AUTH__TOKEN_SECRET"))
	t.Setenv("PETADOPT_DATABASE__URL", "")
	require.NoError(t, os.Unsetenv("PETADOPT_DATABASE__URL"))

	cfg, err := config.Load(config.LoadOptions{DotEnv: dotenv})
	require.NoError(t, err)
	assert.Equal(t, secret, cfg.Auth.TokenSecret)
	assert.Equal(t, "postgres://u:p@db/petadopt", cfg.Database.URL)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", secret)
	_, err := config.Load(config.LoadOptions{DotEnv: filepath.Join(t.TempDir(), "absent.env")})
	require.NoError(t, err)
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", secret)
	t.Setenv("DATABASE_URL", "postgres://fallback/petadopt")

	cfg, err := config.Load(config.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://fallback/petadopt", cfg.Database.URL)

	t.Setenv("PETADOPT_DATABASE__URL", "postgres://primary/petadopt")
	cfg, err = config.Load(config.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/petadopt", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("PETADOPT_AUTH__TOKEN_SECRET", secret)
	_, err := config.Load(config.LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml")})
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestValidate(t *testing.T) {
	valid := config.Default()
	valid.Auth.TokenSecret = secret
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   string
	}{
		{"short secret", func(c *config.Config) { c.Auth.TokenSecret = "short" }, "CONFIG_INVALID"},
		{"zero session ttl", func(c *config.Config) { c.Auth.SessionTTL = 0 }, "AUTH_CONFIG_INVALID"},
		{"weak argon2", func(c *config.Config) { c.Auth.Argon2.Time = 0 }, "HASHER_CONFIG_INVALID"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, "CONFIG_INVALID"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "CONFIG_INVALID"},
		{"empty addr", func(c *config.Config) { c.Server.Addr = "" }, "CONFIG_INVALID"},
		{"smtp without sender", func(c *config.Config) {
			c.Mail.Host = "smtp.example.com"
			c.Mail.From = ""
		}, "MAIL_CONFIG_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), tt.code)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := config.Default()
	cfg.Mail.Host = "smtp.example.com"

	assert.Equal(t, cfg.Auth.SessionTTL, cfg.AuthPolicy().SessionTTL)
	assert.Equal(t, cfg.Auth.Argon2.MemoryKiB, cfg.Argon2Params().MemoryKiB)
	assert.Equal(t, "smtp.example.com", cfg.SMTP().Host)
	assert.Equal(t, cfg.Mail.Timeout, cfg.Dispatcher().SendTimeout)
	assert.Equal(t, cfg.Database.MaxConns, cfg.Pool().MaxConns)
}
