package domain

import "time"

// AuditEntry records one native-query authorization decision for the audit
// consumer. Inserting audit entries is best-effort: a failed insert never
// fails the decision it describes.
type AuditEntry struct {
	ID                 string
	Principal          string
	DataSourceID       int64
	Outcome            Outcome
	Reason             string
	UnauthorizedTables []string // qualified names
	Query              *string
	DurationMs         *int64
	CreatedAt          time.Time
}
