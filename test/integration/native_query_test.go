//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkResult struct {
	Allowed            bool     `json:"allowed"`
	Reason             string   `json:"reason"`
	UnauthorizedTables []string `json:"unauthorized_tables"`
}

func checkQuery(t *testing.T, env *httpEnv, principal, query string) checkResult {
	t.Helper()
	resp := doRequest(t, "POST", env.Server.URL+"/v1/native-query/check", tokenFor(t, principal),
		map[string]interface{}{"data_source_id": 1, "query": query})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out checkResult
	decodeJSON(t, resp, &out)
	return out
}

func TestHTTP_NativeQuery_AdminHasDatabaseNative(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "admin_user", "SELECT * FROM orders JOIN users ON users.id = orders.user_id")
	assert.True(t, res.Allowed)
	assert.Equal(t, "database-level native access", res.Reason)

	// Database-level native access never requires scanning the query.
	res = checkQuery(t, env, "admin_user", "SELECT * FROM (VALUES (1)) t")
	assert.True(t, res.Allowed)
}

func TestHTTP_NativeQuery_AnalystTableGrant(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "analyst1", "SELECT * FROM orders")
	assert.True(t, res.Allowed)
	assert.Equal(t, "all referenced tables authorized", res.Reason)

	res = checkQuery(t, env, "analyst1", "SELECT * FROM orders, users")
	assert.False(t, res.Allowed)
	assert.Equal(t, "query references unauthorized tables", res.Reason)
	assert.Equal(t, []string{"public.users"}, res.UnauthorizedTables)
}

func TestHTTP_NativeQuery_BlockedTableOverridesSchemaGrant(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "researcher1", "SELECT * FROM public.orders")
	assert.True(t, res.Allowed)

	res = checkQuery(t, env, "researcher1", "SELECT * FROM public.users")
	assert.False(t, res.Allowed)
	assert.Equal(t, []string{"public.users"}, res.UnauthorizedTables)
}

func TestHTTP_NativeQuery_NoGrantsDeniedWithoutScanning(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "stranger", "this is not even SQL '")
	assert.False(t, res.Allowed)
	assert.Equal(t, "no native access granted", res.Reason)
}

func TestHTTP_NativeQuery_AmbiguousQueryDenied(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "analyst1", "SELECT * FROM 'orders'")
	assert.False(t, res.Allowed)
	assert.Equal(t, "could not verify referenced tables", res.Reason)
}

func TestHTTP_NativeEditor(t *testing.T) {
	env := setupHTTPServer(t)

	resp := doRequest(t, "GET", env.Server.URL+"/v1/data-sources/1/native-editor", tokenFor(t, "analyst1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]bool
	decodeJSON(t, resp, &out)
	assert.True(t, out["allowed"])

	resp = doRequest(t, "GET", env.Server.URL+"/v1/data-sources/1/native-editor", tokenFor(t, "stranger"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &out)
	assert.False(t, out["allowed"])
}

func TestHTTP_PermissionChange_TakesEffectImmediately(t *testing.T) {
	env := setupHTTPServer(t)

	res := checkQuery(t, env, "analyst1", "SELECT * FROM users")
	require.False(t, res.Allowed)

	resp := doRequest(t, "PUT", env.Server.URL+"/v1/permissions", tokenFor(t, "admin_user"),
		map[string]interface{}{
			"principal":      "analyst1",
			"data_source_id": 1,
			"scope":          "schema",
			"schema_name":    "public",
			"value":          "query-builder-and-native",
		})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	res = checkQuery(t, env, "analyst1", "SELECT * FROM users")
	assert.True(t, res.Allowed)
}

func TestHTTP_Auth(t *testing.T) {
	env := setupHTTPServer(t)

	resp := doRequest(t, "GET", env.Server.URL+"/v1/audit", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "analyst1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	resp = doRequest(t, "GET", env.Server.URL+"/v1/audit", signed, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, "GET", env.Server.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHTTP_AuditTrail(t *testing.T) {
	env := setupHTTPServer(t)

	checkQuery(t, env, "analyst1", "SELECT * FROM orders")
	checkQuery(t, env, "analyst1", "SELECT * FROM users")

	resp := doRequest(t, "GET", env.Server.URL+"/v1/audit?limit=10", tokenFor(t, "admin_user"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Entries []map[string]interface{} `json:"entries"`
	}
	decodeJSON(t, resp, &out)
	require.Len(t, out.Entries, 2)

	outcomes := map[string]bool{}
	for _, e := range out.Entries {
		assert.Equal(t, "analyst1", e["principal"])
		outcomes[e["outcome"].(string)] = true
	}
	assert.True(t, outcomes["allow"])
	assert.True(t, outcomes["deny"])
}
