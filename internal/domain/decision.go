package domain

// Outcome is the result of a policy evaluation.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Decision reasons. These are stable strings: they are returned to API
// callers and recorded in the audit log.
const (
	ReasonDatabaseNative     = "database-level native access"
	ReasonNoNativeAccess     = "no native access granted"
	ReasonUnverifiedTables   = "could not verify referenced tables"
	ReasonUnauthorizedTables = "query references unauthorized tables"
	ReasonTablesAuthorized   = "all referenced tables authorized"
)

// NativeQueryRequest is a single native-query authorization request.
// It is immutable input: the engine never mutates or persists it.
type NativeQueryRequest struct {
	Principal    string
	DataSourceID int64
	Query        string
}

// Decision is the outcome of evaluating one NativeQueryRequest. Produced
// fresh per request, never cached.
type Decision struct {
	Outcome            Outcome
	Reason             string
	UnauthorizedTables []Table
}

// Allowed reports whether the decision permits execution.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Allow constructs an allow decision with the given reason.
func Allow(reason string) Decision {
	return Decision{Outcome: OutcomeAllow, Reason: reason}
}

// Deny constructs a deny decision with the given reason and the tables that
// caused it (may be empty when denial is not table-specific).
func Deny(reason string, unauthorized ...Table) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason, UnauthorizedTables: unauthorized}
}
