package domain

import "time"

// DataSource is a relational database connection known to the engine.
type DataSource struct {
	ID        int64
	Name      string
	Engine    string // e.g. "postgres", "mysql"
	CreatedAt time.Time
}

// Table is one table in a data source's catalog. The catalog is a read-only
// snapshot for the lifetime of an evaluation.
type Table struct {
	ID           int64
	DataSourceID int64
	SchemaName   string // empty for the unqualified default schema
	Name         string
}

// QualifiedName returns "schema.table", or just the table name when the
// table lives in the unqualified default schema.
func (t Table) QualifiedName() string {
	if t.SchemaName == "" {
		return t.Name
	}
	return t.SchemaName + "." + t.Name
}
