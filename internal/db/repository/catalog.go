package repository

import (
	"context"
	"database/sql"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// CatalogRepo reads and maintains the data-source and table catalog.
type CatalogRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewCatalogRepo(writeDB, readDB *sql.DB) *CatalogRepo {
	return &CatalogRepo{writeDB: writeDB, readDB: readDB}
}

func (r *CatalogRepo) GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error) {
	var ds domain.DataSource
	err := r.readDB.QueryRowContext(ctx, `
		SELECT id, name, engine, created_at FROM data_sources WHERE id = ?`, id).
		Scan(&ds.ID, &ds.Name, &ds.Engine, &ds.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &ds, nil
}

func (r *CatalogRepo) CreateDataSource(ctx context.Context, name, engine string) (*domain.DataSource, error) {
	if name == "" {
		return nil, domain.ErrValidation("data source name is required")
	}
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO data_sources (name, engine) VALUES (?, ?)`, name, engine)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetDataSource(ctx, id)
}

func (r *CatalogRepo) ListTables(ctx context.Context, dataSourceID int64) ([]domain.Table, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, data_source_id, schema_name, table_name
		FROM catalog_tables
		WHERE data_source_id = ?
		ORDER BY schema_name, table_name`, dataSourceID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var tables []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.DataSourceID, &t.SchemaName, &t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// AddTable registers one table in the data source's catalog and returns it
// with its assigned ID.
func (r *CatalogRepo) AddTable(ctx context.Context, dataSourceID int64, schemaName, tableName string) (*domain.Table, error) {
	if tableName == "" {
		return nil, domain.ErrValidation("table name is required")
	}
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO catalog_tables (data_source_id, schema_name, table_name)
		VALUES (?, ?, ?)`, dataSourceID, schemaName, tableName)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Table{ID: id, DataSourceID: dataSourceID, SchemaName: schemaName, Name: tableName}, nil
}

func (r *CatalogRepo) RemoveTable(ctx context.Context, tableID int64) error {
	_, err := r.writeDB.ExecContext(ctx, `DELETE FROM catalog_tables WHERE id = ?`, tableID)
	return mapDBError(err)
}
