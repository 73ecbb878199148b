// Package perms resolves stored permission entries into effective per-table
// permissions, and matches lexical table references against a data source's
// catalog.
package perms

import (
	"sort"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/sqlscan"
)

// Index is an immutable, queryable view of one principal's effective
// permissions over one data source. Database- and schema-level defaults are
// folded into a per-table resolved value at construction, so lookups are a
// map read. A built Index is safe for concurrent use.
type Index struct {
	principal     string
	dataSourceID  int64
	databaseLevel domain.PermValue
	resolved      map[int64]domain.PermValue
	tables        []domain.Table
}

// BuildIndex resolves permission entries against the catalog snapshot.
//
// Resolution applies scopes in strict order (database, then schema, then
// table), so the most specific entry wins regardless of input row order.
// One rule inverts that precedence: blocked at any applicable scope makes
// the resolved value blocked, no matter what a more specific entry grants.
//
// Entries with a perm type other than create-queries are skipped. Malformed
// entries (unknown value, scope target inconsistent with scope level, or
// duplicate entries for the same scope target) abort the build with a
// MalformedPermissionEntryError; a partially-built index is never returned.
func BuildIndex(principal string, dataSourceID int64, entries []domain.PermissionEntry, tables []domain.Table) (*Index, error) {
	dbValue := domain.PermNo
	dbSeen := false
	dbBlocked := false
	schemaValues := make(map[string]domain.PermValue)
	tableValues := make(map[int64]domain.PermValue)

	for _, e := range entries {
		if e.PermType != domain.PermTypeCreateQueries {
			continue
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		switch e.Scope {
		case domain.ScopeDatabase:
			if dbSeen {
				return nil, domain.ErrMalformedEntry("duplicate database-level entry for principal %q", principal)
			}
			dbSeen = true
			dbValue = e.Value
			dbBlocked = e.Value == domain.PermBlocked
		case domain.ScopeSchema:
			key := sqlscan.Fold(e.SchemaName)
			if _, dup := schemaValues[key]; dup {
				return nil, domain.ErrMalformedEntry("duplicate schema-level entry for %q, principal %q", e.SchemaName, principal)
			}
			schemaValues[key] = e.Value
		case domain.ScopeTable:
			if _, dup := tableValues[e.TableID]; dup {
				return nil, domain.ErrMalformedEntry("duplicate table-level entry for table %d, principal %q", e.TableID, principal)
			}
			tableValues[e.TableID] = e.Value
		}
	}

	resolved := make(map[int64]domain.PermValue, len(tables))
	for _, t := range tables {
		value := dbValue
		schemaValue, hasSchema := schemaValues[sqlscan.Fold(t.SchemaName)]
		if hasSchema {
			value = schemaValue
		}
		tableValue, hasTable := tableValues[t.ID]
		if hasTable {
			value = tableValue
		}
		// Blocked dominance: blocked anywhere on the path wins.
		if dbBlocked || (hasSchema && schemaValue == domain.PermBlocked) || (hasTable && tableValue == domain.PermBlocked) {
			value = domain.PermBlocked
		}
		resolved[t.ID] = value
	}

	return &Index{
		principal:     principal,
		dataSourceID:  dataSourceID,
		databaseLevel: dbValue,
		resolved:      resolved,
		tables:        tables,
	}, nil
}

// Principal returns the principal this index was built for.
func (ix *Index) Principal() string { return ix.principal }

// DataSourceID returns the data source this index was built for.
func (ix *Index) DataSourceID() int64 { return ix.dataSourceID }

// Resolve returns the effective permission value for a table. Tables absent
// from the catalog snapshot resolve to no access.
func (ix *Index) Resolve(tableID int64) domain.PermValue {
	if v, ok := ix.resolved[tableID]; ok {
		return v
	}
	return domain.PermNo
}

// HasDatabaseLevel reports whether the principal holds an unrestricted
// database-level grant of at least min: the database-level entry meets the
// minimum AND no schema- or table-level entry narrows any table below it.
// The narrowing check keeps the evaluator's fast path consistent with
// blocked dominance; a database-wide grant with even one table carved out is
// not treated as database-wide.
func (ix *Index) HasDatabaseLevel(min domain.PermValue) bool {
	if !ix.databaseLevel.AtLeast(min) {
		return false
	}
	for _, v := range ix.resolved {
		if !v.AtLeast(min) {
			return false
		}
	}
	return true
}

// TablesWithAtLeast returns the tables whose effective permission meets the
// minimum, ordered by qualified name for deterministic output.
func (ix *Index) TablesWithAtLeast(min domain.PermValue) []domain.Table {
	var out []domain.Table
	for _, t := range ix.tables {
		if ix.resolved[t.ID].AtLeast(min) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

// HasAnyWithAtLeast reports whether at least one table meets the minimum.
func (ix *Index) HasAnyWithAtLeast(min domain.PermValue) bool {
	for _, v := range ix.resolved {
		if v.AtLeast(min) {
			return true
		}
	}
	return false
}
