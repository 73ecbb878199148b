package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// AuditRepo persists authorization decisions. Unauthorized table names are
// stored as a comma-separated list; they are display data, never re-parsed
// into permission checks.
type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	var tables interface{}
	if len(e.UnauthorizedTables) > 0 {
		tables = strings.Join(e.UnauthorizedTables, ",")
	}
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal, data_source_id, outcome, reason, unauthorized_tables, query_text, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Principal, e.DataSourceID, e.Outcome, e.Reason, tables, e.Query, e.DurationMs)
	return mapDBError(err)
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, principal, data_source_id, outcome, reason, unauthorized_tables, query_text, duration_ms, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var tables sql.NullString
		if err := rows.Scan(&e.ID, &e.Principal, &e.DataSourceID, &e.Outcome, &e.Reason, &tables, &e.Query, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		if tables.Valid && tables.String != "" {
			e.UnauthorizedTables = strings.Split(tables.String, ",")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
