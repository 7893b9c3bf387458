package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:       8080,
		DBDriver:   config.DriverSQLite,
		DBPath:     ":memory:",
		SessionTTL: time.Hour,
		BaseURL:    "http://localhost:8080",
		LogLevel:   "error",
		LogFormat:  "text",
		GitHub: config.OAuthClient{
			ClientID:     "gh-id",
			ClientSecret: "gh-secret",
			CallbackURL:  "http://localhost:8080/api/callback/github",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/blogs", http.StatusOK},
		{"/api/tags", http.StatusOK},
		{"/api/users/github|1", http.StatusNotFound},
		{"/api/auth/user", http.StatusUnauthorized},
		{"/api/login", http.StatusTemporaryRedirect},
		{"/api/login/google", http.StatusNotFound},
		{"/api/logout", http.StatusSeeOther},
		{"/api/does-not-exist", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, s, tt.path)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestServer_LoginRedirectsToGitHub(t *testing.T) {
	s := newTestServer(t, testConfig())

	rr := get(t, s, "/api/login")
	loc := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://github.com/login/oauth/authorize"), loc)
	assert.Contains(t, loc, "client_id=gh-id")
}

func TestServer_MediaRoutesNeedS3(t *testing.T) {
	s := newTestServer(t, testConfig())

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/media/presign", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_MediaRoutesWithS3(t *testing.T) {
	cfg := testConfig()
	cfg.S3 = config.S3{
		Bucket:          "inkwell",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicURL:       "https://cdn.example.com",
	}
	s := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/media/presign", nil))
	// registered, so the auth middleware answers
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServer_StaticFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>inkwell</html>"), 0o644))

	cfg := testConfig()
	cfg.StaticDir = dir
	s := newTestServer(t, cfg)

	rr := get(t, s, "/blog/7")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>inkwell</html>", rr.Body.String())

	// API misses stay JSON
	rr = get(t, s, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestServer_SQLiteFileIsCreated(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "inkwell.db")
	newTestServer(t, cfg)

	_, err := os.Stat(cfg.DBPath)
	assert.NoError(t, err)
}

func TestServer_BadStaticDir(t *testing.T) {
	cfg := testConfig()
	cfg.StaticDir = t.TempDir()

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
