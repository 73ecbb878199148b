package domain

// PermValue is the query-creation capability granted at some scope.
type PermValue string

// Permission values, from weakest to strongest. PermBlocked sits outside the
// ordering: it is absolute and can never satisfy a minimum, regardless of how
// specific the entry that carries it is.
const (
	PermNo                    PermValue = "no"
	PermQueryBuilder          PermValue = "query-builder"
	PermQueryBuilderAndNative PermValue = "query-builder-and-native"
	PermBlocked               PermValue = "blocked"
)

// rank returns the position of v in the capability ordering. Blocked ranks
// below everything, including PermNo.
func (v PermValue) rank() int {
	switch v {
	case PermNo:
		return 0
	case PermQueryBuilder:
		return 1
	case PermQueryBuilderAndNative:
		return 2
	default:
		return -1
	}
}

// Valid reports whether v is a known permission value.
func (v PermValue) Valid() bool {
	switch v {
	case PermNo, PermQueryBuilder, PermQueryBuilderAndNative, PermBlocked:
		return true
	}
	return false
}

// AtLeast reports whether v grants at least the capability of min.
// PermBlocked never satisfies any minimum.
func (v PermValue) AtLeast(min PermValue) bool {
	if v == PermBlocked {
		return false
	}
	return v.rank() >= min.rank()
}

// ScopeLevel identifies the granularity of a permission entry.
type ScopeLevel string

// Scope levels, from least to most specific.
const (
	ScopeDatabase ScopeLevel = "database"
	ScopeSchema   ScopeLevel = "schema"
	ScopeTable    ScopeLevel = "table"
)

// PermTypeCreateQueries is the only permission type the engine interprets.
// Entries with other perm types are treated as not applicable and skipped.
const PermTypeCreateQueries = "create-queries"

// PermissionEntry is one stored permission row for a principal on a data
// source. Entries form a sparse override map: at most one entry may exist per
// (principal, data source, scope, target, perm type).
type PermissionEntry struct {
	Principal    string
	DataSourceID int64
	Scope        ScopeLevel
	SchemaName   string // set only for schema-level entries
	TableID      int64  // set only for table-level entries
	PermType     string
	Value        PermValue
}

// Validate checks that the entry's value is known and its scope target is
// consistent with its scope level. A failure is a configuration-integrity
// fault, not a policy outcome.
func (e PermissionEntry) Validate() error {
	if !e.Value.Valid() {
		return ErrMalformedEntry("unknown permission value %q for principal %q", e.Value, e.Principal)
	}
	switch e.Scope {
	case ScopeDatabase:
		if e.SchemaName != "" || e.TableID != 0 {
			return ErrMalformedEntry("database-level entry for principal %q carries a scope target", e.Principal)
		}
	case ScopeSchema:
		if e.SchemaName == "" {
			return ErrMalformedEntry("schema-level entry for principal %q is missing a schema name", e.Principal)
		}
		if e.TableID != 0 {
			return ErrMalformedEntry("schema-level entry for principal %q carries a table ID", e.Principal)
		}
	case ScopeTable:
		if e.TableID == 0 {
			return ErrMalformedEntry("table-level entry for principal %q is missing a table ID", e.Principal)
		}
	default:
		return ErrMalformedEntry("unknown scope level %q for principal %q", e.Scope, e.Principal)
	}
	return nil
}
