//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/ArmorCode-Public-Test/metabase/internal/app"
	"github.com/ArmorCode-Public-Test/metabase/internal/config"
	internaldb "github.com/ArmorCode-Public-Test/metabase/internal/db"
)

const testJWTSecret = "integration-test-secret"

type httpEnv struct {
	Server *httptest.Server
	App    *app.App
}

// setupHTTPServer boots the full application on a temp metastore, seeds the
// demo fixtures, and serves the real router over httptest.
func setupHTTPServer(t *testing.T) *httpEnv {
	t.Helper()

	cfg := &config.Config{
		MetaDBPath:         filepath.Join(t.TempDir(), "metastore.sqlite"),
		JWTSecret:          testJWTSecret,
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
		CacheSweepSchedule: "*/5 * * * *",
		CacheMaxAge:        15 * time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writeDB, readDB, err := internaldb.OpenPair(cfg.MetaDBPath, 4)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})
	require.NoError(t, internaldb.Migrate(writeDB))

	application, err := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, application.SeedDemo(context.Background()))

	srv := httptest.NewServer(application.Router(cfg, logger))
	t.Cleanup(srv.Close)

	return &httpEnv{Server: srv, App: application}
}

// tokenFor mints a bearer token for the given principal, signed with the
// server's secret.
func tokenFor(t *testing.T, principal string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": principal,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, method, url, bearer string, body interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
