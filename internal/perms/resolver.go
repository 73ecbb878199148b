package perms

import (
	"fmt"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/sqlscan"
)

// Catalog is a read-only lookup structure over a data source's tables.
// Identifier matching is case-insensitive, per the usual identifier
// case-folding convention of the supported data sources.
type Catalog struct {
	tables      []domain.Table
	byQualified map[catalogKey]domain.Table
	byName      map[string][]domain.Table
}

type catalogKey struct {
	schema string
	name   string
}

// NewCatalog builds lookup maps over the table snapshot.
func NewCatalog(tables []domain.Table) *Catalog {
	c := &Catalog{
		tables:      tables,
		byQualified: make(map[catalogKey]domain.Table, len(tables)),
		byName:      make(map[string][]domain.Table),
	}
	for _, t := range tables {
		key := catalogKey{schema: sqlscan.Fold(t.SchemaName), name: sqlscan.Fold(t.Name)}
		c.byQualified[key] = t
		c.byName[key.name] = append(c.byName[key.name], t)
	}
	return c
}

// Tables returns the underlying table snapshot.
func (c *Catalog) Tables() []domain.Table { return c.tables }

// Unresolved describes a raw reference that could not be mapped to exactly
// one catalog table. It is never dropped: the evaluator turns any unresolved
// reference into a deny.
type Unresolved struct {
	Ref    sqlscan.RawReference
	Reason string
}

func (u Unresolved) String() string {
	name := u.Ref.Name
	if u.Ref.Schema != "" {
		name = u.Ref.Schema + "." + u.Ref.Name
	}
	return fmt.Sprintf("%s: %s", name, u.Reason)
}

// Resolve maps the extraction's raw references onto catalog tables.
//
// Unqualified names matching a registered alias or CTE name are filtered,
// since an alias is not a table, except when the name also exists in the
// catalog:
// a real table shadowed by an alias is still reported, so uncertainty leans
// toward checking more tables, not fewer. A name matching zero catalog
// tables, or more than one across schemas when unqualified, comes back as
// Unresolved.
func (c *Catalog) Resolve(ext *sqlscan.Extraction) (resolved []domain.Table, unresolved []Unresolved) {
	seen := make(map[int64]bool)

	for _, ref := range ext.Refs {
		name := sqlscan.Fold(ref.Name)

		if ref.Schema != "" {
			t, ok := c.byQualified[catalogKey{schema: sqlscan.Fold(ref.Schema), name: name}]
			if !ok {
				unresolved = append(unresolved, Unresolved{Ref: ref, Reason: "unknown table"})
				continue
			}
			if !seen[t.ID] {
				seen[t.ID] = true
				resolved = append(resolved, t)
			}
			continue
		}

		matches := c.byName[name]
		if len(matches) == 0 {
			if ext.Aliases[name] {
				continue // alias, not a table
			}
			unresolved = append(unresolved, Unresolved{Ref: ref, Reason: "unknown table"})
			continue
		}
		if len(matches) > 1 {
			unresolved = append(unresolved, Unresolved{Ref: ref, Reason: "ambiguous unqualified name"})
			continue
		}
		if !seen[matches[0].ID] {
			seen[matches[0].ID] = true
			resolved = append(resolved, matches[0])
		}
	}
	return resolved, unresolved
}

// Snapshot pairs an Index with the Catalog it was built against. The pair is
// immutable and may be shared by any number of concurrent evaluations.
type Snapshot struct {
	Index   *Index
	Catalog *Catalog
}
