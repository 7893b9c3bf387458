package config_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/pflag"

	"github.com/sakif/inkwell/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "JWT_SECRET", "SESSION_TTL",
		"COOKIE_SECURE", "BASE_URL", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"GITHUB_CALLBACK_URL", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL",
		"STATIC_DIR", "LOG_LEVEL", "LOG_FORMAT", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PUBLIC_URL",
	} {
		t.Setenv(k, "")
	}
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("inkwell", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("db-driver", "sqlite", "")
	fs.String("db-path", "data/inkwell.db", "")
	fs.String("database-url", "", "")
	fs.String("static-dir", "", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(t)

	cfg, err := config.Load(nil)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Port, qt.Equals, 8080)
	c.Assert(cfg.DBDriver, qt.Equals, config.DriverSQLite)
	c.Assert(cfg.DBPath, qt.Equals, "data/inkwell.db")
	c.Assert(cfg.SessionTTL, qt.Equals, 7*24*time.Hour)
	c.Assert(cfg.CookieSecure, qt.IsFalse)
	c.Assert(cfg.BaseURL, qt.Equals, "http://localhost:8080")
	c.Assert(cfg.GitHub.CallbackURL, qt.Equals, "http://localhost:8080/api/callback/github")
	c.Assert(cfg.Google.CallbackURL, qt.Equals, "http://localhost:8080/api/callback/google")
	c.Assert(cfg.GitHub.Enabled(), qt.IsFalse)
	c.Assert(cfg.LogLevel, qt.Equals, "info")
	c.Assert(cfg.LogFormat, qt.Equals, "text")
	c.Assert(cfg.S3.Region, qt.Equals, "us-east-1")
}

func TestLoad_Env(t *testing.T) {
	c := qt.New(t)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://inkwell@localhost/inkwell?sslmode=disable")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("BASE_URL", "https://inkwell.example.com/")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := config.Load(nil)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Port, qt.Equals, 9090)
	c.Assert(cfg.DBDriver, qt.Equals, config.DriverPostgres)
	c.Assert(cfg.SessionTTL, qt.Equals, 2*time.Hour)
	c.Assert(cfg.CookieSecure, qt.IsTrue)
	c.Assert(cfg.GitHub.Enabled(), qt.IsTrue)
	c.Assert(cfg.GitHub.CallbackURL, qt.Equals, "https://inkwell.example.com/api/callback/github")
	c.Assert(cfg.LogFormat, qt.Equals, "json")
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	c := qt.New(t)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")

	fs := newFlags()
	c.Assert(fs.Parse([]string{"--port", "7070", "--db-path", "/tmp/x.db"}), qt.IsNil)

	cfg, err := config.Load(fs)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Port, qt.Equals, 7070)
	c.Assert(cfg.DBPath, qt.Equals, "/tmp/x.db")
	// not set on the command line, so the environment wins
	c.Assert(cfg.LogLevel, qt.Equals, "warn")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mongodb"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad level", map[string]string{"LOG_LEVEL": "chatty"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"half s3", map[string]string{"S3_BUCKET": "images"}, "S3_PUBLIC_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(nil)
			c.Assert(err, qt.ErrorMatches, "(?s).*"+tt.want+".*")
		})
	}
}

func TestLogger(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	cfg := &config.Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	c.Assert(strings.Contains(out, "hidden"), qt.IsFalse)
	c.Assert(strings.Contains(out, `"msg":"shown"`), qt.IsTrue)
}
