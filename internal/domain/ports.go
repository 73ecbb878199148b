package domain

import "context"

// PermissionRepository reads stored permission rows. The rows themselves are
// owned and mutated by the permission-administration subsystem; the engine
// only consumes snapshots.
type PermissionRepository interface {
	// ListForPrincipal returns all permission entries scoped to one
	// (principal, data source) pair. An unknown principal yields an empty
	// list, not an error: absent rows mean no permissions granted.
	ListForPrincipal(ctx context.Context, principal string, dataSourceID int64) ([]PermissionEntry, error)
}

// CatalogRepository reads the table catalog of a data source.
type CatalogRepository interface {
	// GetDataSource returns the data source with the given ID, or a
	// NotFoundError.
	GetDataSource(ctx context.Context, id int64) (*DataSource, error)
	// ListTables returns every known table of the data source. An unknown
	// data source yields an empty list.
	ListTables(ctx context.Context, dataSourceID int64) ([]Table, error)
}

// PermissionWriter mutates the sparse permission override map. Used by the
// administration endpoints, never by evaluation.
type PermissionWriter interface {
	// Set inserts or replaces the entry for its scope target.
	Set(ctx context.Context, entry PermissionEntry) error
	// Delete removes the entry for its scope target; absent entries are a
	// no-op.
	Delete(ctx context.Context, entry PermissionEntry) error
}

// CatalogWriter maintains the data-source and table catalog.
type CatalogWriter interface {
	CreateDataSource(ctx context.Context, name, engine string) (*DataSource, error)
	AddTable(ctx context.Context, dataSourceID int64, schemaName, tableName string) (*Table, error)
	RemoveTable(ctx context.Context, tableID int64) error
}

// AuditRepository persists authorization decisions.
type AuditRepository interface {
	Insert(ctx context.Context, entry *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}
