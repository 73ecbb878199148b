package app

import (
	"context"
	"fmt"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// SeedDemo populates an empty metastore with a demo data source and a few
// principals exercising each grant shape. Idempotent: a non-empty metastore
// is left alone.
func (a *App) SeedDemo(ctx context.Context) error {
	existing, err := a.Catalog.ListTables(ctx, 1)
	if err == nil && len(existing) > 0 {
		return nil // already seeded
	}

	ds, err := a.Admin.CreateDataSource(ctx, "warehouse", "postgres")
	if err != nil {
		return fmt.Errorf("create demo data source: %w", err)
	}

	orders, err := a.Admin.AddTable(ctx, ds.ID, "public", "orders")
	if err != nil {
		return fmt.Errorf("add orders: %w", err)
	}
	users, err := a.Admin.AddTable(ctx, ds.ID, "public", "users")
	if err != nil {
		return fmt.Errorf("add users: %w", err)
	}
	if _, err := a.Admin.AddTable(ctx, ds.ID, "analytics", "events"); err != nil {
		return fmt.Errorf("add events: %w", err)
	}

	seedEntries := []domain.PermissionEntry{
		// admin: unrestricted native access on the whole database
		{Principal: "admin_user", DataSourceID: ds.ID, Scope: domain.ScopeDatabase,
			PermType: domain.PermTypeCreateQueries, Value: domain.PermQueryBuilderAndNative},
		// analyst1: native on orders only, query builder elsewhere
		{Principal: "analyst1", DataSourceID: ds.ID, Scope: domain.ScopeDatabase,
			PermType: domain.PermTypeCreateQueries, Value: domain.PermQueryBuilder},
		{Principal: "analyst1", DataSourceID: ds.ID, Scope: domain.ScopeTable, TableID: orders.ID,
			PermType: domain.PermTypeCreateQueries, Value: domain.PermQueryBuilderAndNative},
		// researcher1: native on the public schema, but users is blocked
		{Principal: "researcher1", DataSourceID: ds.ID, Scope: domain.ScopeSchema, SchemaName: "public",
			PermType: domain.PermTypeCreateQueries, Value: domain.PermQueryBuilderAndNative},
		{Principal: "researcher1", DataSourceID: ds.ID, Scope: domain.ScopeTable, TableID: users.ID,
			PermType: domain.PermTypeCreateQueries, Value: domain.PermBlocked},
	}
	for _, e := range seedEntries {
		if err := a.Admin.SetPermission(ctx, e); err != nil {
			return fmt.Errorf("seed permission for %s: %w", e.Principal, err)
		}
	}
	return nil
}
