package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/ArmorCode-Public-Test/metabase/internal/db"
	"github.com/ArmorCode-Public-Test/metabase/internal/db/repository"
	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/middleware"
	"github.com/ArmorCode-Public-Test/metabase/internal/service"
)

type testServer struct {
	router *chi.Mux
	admin  *service.AdminService
	ds     *domain.DataSource
	orders domain.Table
	users  domain.Table
}

// newTestServer mounts the handler on a router backed by a seeded metastore.
// Authentication is bypassed: each request carries its principal directly.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestMetastore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	permRepo := repository.NewPermissionRepo(writeDB, readDB)
	catalogRepo := repository.NewCatalogRepo(writeDB, readDB)
	auditRepo := repository.NewAuditRepo(writeDB, readDB)

	cache := service.NewIndexCache(permRepo, catalogRepo, logger)
	evaluator := service.NewPolicyEvaluator(cache, logger)
	gate := service.NewQueryGateService(evaluator, auditRepo, logger)
	admin := service.NewAdminService(permRepo, catalogRepo, catalogRepo, cache, logger)

	router := chi.NewRouter()
	router.Route("/v1", NewHandler(gate, admin, logger).Routes)

	ctx := context.Background()
	ds, err := admin.CreateDataSource(ctx, "warehouse", "postgres")
	require.NoError(t, err)
	orders, err := admin.AddTable(ctx, ds.ID, "public", "orders")
	require.NoError(t, err)
	users, err := admin.AddTable(ctx, ds.ID, "public", "users")
	require.NoError(t, err)

	return &testServer{router: router, admin: admin, ds: ds, orders: *orders, users: *users}
}

// do issues a request as the given principal and returns the recorder.
func (ts *testServer) do(t *testing.T, method, path, principal string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if principal != "" {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) grantNative(t *testing.T, principal string, tableID int64) {
	t.Helper()
	require.NoError(t, ts.admin.SetPermission(context.Background(), domain.PermissionEntry{
		Principal:    principal,
		DataSourceID: ts.ds.ID,
		Scope:        domain.ScopeTable,
		TableID:      tableID,
		PermType:     domain.PermTypeCreateQueries,
		Value:        domain.PermQueryBuilderAndNative,
	}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestCheckNativeQuery_Allow(t *testing.T) {
	ts := newTestServer(t)
	ts.grantNative(t, "analyst1", ts.orders.ID)

	rec := ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
		DataSourceID: ts.ds.ID,
		Query:        "SELECT * FROM orders",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Allowed)
	assert.Equal(t, "all referenced tables authorized", resp.Reason)
	assert.Empty(t, resp.UnauthorizedTables)
}

func TestCheckNativeQuery_DenyListsTables(t *testing.T) {
	ts := newTestServer(t)
	ts.grantNative(t, "analyst1", ts.orders.ID)

	rec := ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
		DataSourceID: ts.ds.ID,
		Query:        "SELECT * FROM orders JOIN users ON users.id = orders.user_id",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Allowed)
	assert.Equal(t, "query references unauthorized tables", resp.Reason)
	assert.Equal(t, []string{"public.users"}, resp.UnauthorizedTables)
}

func TestCheckNativeQuery_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", map[string]string{"query": "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/native-query/check", "", checkRequest{DataSourceID: 1, Query: "SELECT 1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNativeEditor(t *testing.T) {
	ts := newTestServer(t)
	ts.grantNative(t, "analyst1", ts.orders.ID)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/v1/data-sources/%d/native-editor", ts.ds.ID), "analyst1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	decodeBody(t, rec, &resp)
	assert.True(t, resp["allowed"])

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/data-sources/%d/native-editor", ts.ds.ID), "stranger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.False(t, resp["allowed"])
}

func TestDataSourceEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/data-sources", "admin_user", dataSourceRequest{Name: "lake", Engine: "mysql"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dataSourceAPI
	decodeBody(t, rec, &created)
	assert.Equal(t, "lake", created.Name)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/data-sources/%d", created.ID), "admin_user", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/data-sources/999", "admin_user", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/data-sources/abc", "admin_user", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTableEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/v1/data-sources/%d/tables", ts.ds.ID), "admin_user", addTableRequest{
		SchemaName: "analytics",
		TableName:  "events",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created tableAPI
	decodeBody(t, rec, &created)
	assert.Equal(t, "events", created.Name)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/data-sources/%d/tables", ts.ds.ID), "admin_user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tables []tableAPI `json:"tables"`
	}
	decodeBody(t, rec, &listed)
	assert.Len(t, listed.Tables, 3)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/v1/data-sources/%d/tables/%d", ts.ds.ID, created.ID), "admin_user", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetPermission_InvalidatesCache(t *testing.T) {
	ts := newTestServer(t)

	check := func() checkResponse {
		rec := ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
			DataSourceID: ts.ds.ID,
			Query:        "SELECT * FROM orders",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp checkResponse
		decodeBody(t, rec, &resp)
		return resp
	}

	assert.False(t, check().Allowed)

	rec := ts.do(t, http.MethodPut, "/v1/permissions", "admin_user", permissionRequest{
		Principal:    "analyst1",
		DataSourceID: ts.ds.ID,
		Scope:        "table",
		TableID:      ts.orders.ID,
		Value:        "query-builder-and-native",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.True(t, check().Allowed)

	rec = ts.do(t, http.MethodDelete, "/v1/permissions", "admin_user", permissionRequest{
		Principal:    "analyst1",
		DataSourceID: ts.ds.ID,
		Scope:        "table",
		TableID:      ts.orders.ID,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.False(t, check().Allowed)
}

func TestSetPermission_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/v1/permissions", "admin_user", permissionRequest{
		Principal:    "analyst1",
		DataSourceID: ts.ds.ID,
		Scope:        "table",
		TableID:      ts.orders.ID,
		Value:        "read-write", // unknown value
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/v1/permissions", "admin_user", permissionRequest{
		Principal:    "analyst1",
		DataSourceID: ts.ds.ID,
		Scope:        "database",
		TableID:      ts.orders.ID, // target inconsistent with scope
		Value:        "query-builder",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidate(t *testing.T) {
	ts := newTestServer(t)
	ts.grantNative(t, "analyst1", ts.orders.ID)

	// Warm the cache.
	ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
		DataSourceID: ts.ds.ID,
		Query:        "SELECT * FROM orders",
	})

	rec := ts.do(t, http.MethodPost, "/v1/permissions/invalidate", "admin_user", invalidateRequest{
		DataSourceID: ts.ds.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	decodeBody(t, rec, &resp)
	assert.Equal(t, 1, resp["evicted"])

	rec = ts.do(t, http.MethodPost, "/v1/permissions/invalidate", "admin_user", invalidateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAudit(t *testing.T) {
	ts := newTestServer(t)
	ts.grantNative(t, "analyst1", ts.orders.ID)

	ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
		DataSourceID: ts.ds.ID,
		Query:        "SELECT * FROM orders",
	})
	ts.do(t, http.MethodPost, "/v1/native-query/check", "analyst1", checkRequest{
		DataSourceID: ts.ds.ID,
		Query:        "SELECT * FROM users",
	})

	rec := ts.do(t, http.MethodGet, "/v1/audit?limit=10", "admin_user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Entries []auditAPI `json:"entries"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Entries, 2)
	for _, e := range resp.Entries {
		assert.Equal(t, "analyst1", e.Principal)
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.CreatedAt)
	}

	rec = ts.do(t, http.MethodGet, "/v1/audit?limit=bogus", "admin_user", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
