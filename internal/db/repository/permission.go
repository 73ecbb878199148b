package repository

import (
	"context"
	"database/sql"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// PermissionRepo reads and writes the sparse permission override map. Reads
// go to the read pool, writes to the single-writer pool.
type PermissionRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewPermissionRepo(writeDB, readDB *sql.DB) *PermissionRepo {
	return &PermissionRepo{writeDB: writeDB, readDB: readDB}
}

func (r *PermissionRepo) ListForPrincipal(ctx context.Context, principal string, dataSourceID int64) ([]domain.PermissionEntry, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT principal, data_source_id, scope_level, schema_name, table_id, perm_type, perm_value
		FROM permissions
		WHERE principal = ? AND data_source_id = ?`,
		principal, dataSourceID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var entries []domain.PermissionEntry
	for rows.Next() {
		var e domain.PermissionEntry
		if err := rows.Scan(&e.Principal, &e.DataSourceID, &e.Scope, &e.SchemaName, &e.TableID, &e.PermType, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Set inserts or replaces the entry for its scope target. The uniqueness
// constraint keeps the override map sparse: one row per target.
func (r *PermissionRepo) Set(ctx context.Context, e domain.PermissionEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO permissions (principal, data_source_id, scope_level, schema_name, table_id, perm_type, perm_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (principal, data_source_id, scope_level, schema_name, table_id, perm_type)
		DO UPDATE SET perm_value = excluded.perm_value, updated_at = CURRENT_TIMESTAMP`,
		e.Principal, e.DataSourceID, e.Scope, e.SchemaName, e.TableID, e.PermType, e.Value)
	return mapDBError(err)
}

// Delete removes the entry for one scope target; deleting an absent entry is
// not an error.
func (r *PermissionRepo) Delete(ctx context.Context, e domain.PermissionEntry) error {
	_, err := r.writeDB.ExecContext(ctx, `
		DELETE FROM permissions
		WHERE principal = ? AND data_source_id = ? AND scope_level = ?
		  AND schema_name = ? AND table_id = ? AND perm_type = ?`,
		e.Principal, e.DataSourceID, e.Scope, e.SchemaName, e.TableID, e.PermType)
	return mapDBError(err)
}
