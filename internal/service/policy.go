package service

import (
	"context"
	"log/slog"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/perms"
	"github.com/ArmorCode-Public-Test/metabase/internal/sqlscan"
)

// PolicyEvaluator decides whether a principal may run a native query against
// a data source, and whether the native editor may be opened at all.
//
// Evaluation is fail-closed: any reference the scanner or resolver cannot
// confidently classify denies the request. The only returned errors are
// infrastructure failures (storage reads, malformed stored permissions); a
// denied query is a normal Decision, not an error.
type PolicyEvaluator struct {
	cache  *IndexCache
	logger *slog.Logger
}

func NewPolicyEvaluator(cache *IndexCache, logger *slog.Logger) *PolicyEvaluator {
	return &PolicyEvaluator{
		cache:  cache,
		logger: logger.With("component", "policy"),
	}
}

// CanExecuteNative evaluates one native-query request.
//
// Order matters: the database-level fast path and the no-access-anywhere
// gate are both checked before the query text is scanned, so a principal
// with no native grants is denied without touching the query, and a fully
// unrestricted principal is allowed without touching it either.
func (p *PolicyEvaluator) CanExecuteNative(ctx context.Context, req domain.NativeQueryRequest) (domain.Decision, error) {
	snap, err := p.cache.Get(ctx, req.Principal, req.DataSourceID)
	if err != nil {
		return domain.Decision{}, err
	}
	return p.evaluate(snap, req), nil
}

// CanOpenNativeEditor reports whether the principal holds native access on
// the whole database or on at least one table. No query text is involved.
func (p *PolicyEvaluator) CanOpenNativeEditor(ctx context.Context, principal string, dataSourceID int64) (bool, error) {
	snap, err := p.cache.Get(ctx, principal, dataSourceID)
	if err != nil {
		return false, err
	}
	if snap.Index.HasDatabaseLevel(domain.PermQueryBuilderAndNative) {
		return true, nil
	}
	return snap.Index.HasAnyWithAtLeast(domain.PermQueryBuilderAndNative), nil
}

// evaluate is a pure function of the snapshot and the request: the same pair
// always yields the same Decision.
func (p *PolicyEvaluator) evaluate(snap perms.Snapshot, req domain.NativeQueryRequest) domain.Decision {
	if snap.Index.HasDatabaseLevel(domain.PermQueryBuilderAndNative) {
		return domain.Allow(domain.ReasonDatabaseNative)
	}
	if !snap.Index.HasAnyWithAtLeast(domain.PermQueryBuilderAndNative) {
		return domain.Deny(domain.ReasonNoNativeAccess)
	}

	ext := sqlscan.Extract(req.Query)
	if ext.IsAmbiguous() {
		p.logger.Debug("query marked ambiguous",
			"principal", req.Principal,
			"data_source_id", req.DataSourceID,
			"spans", ext.Ambiguous)
		return domain.Deny(domain.ReasonUnverifiedTables)
	}

	resolved, unresolved := snap.Catalog.Resolve(ext)
	if len(unresolved) > 0 {
		p.logger.Debug("query references unresolved tables",
			"principal", req.Principal,
			"data_source_id", req.DataSourceID,
			"unresolved", unresolvedStrings(unresolved))
		return domain.Deny(domain.ReasonUnverifiedTables)
	}

	var unauthorized []domain.Table
	for _, t := range resolved {
		if !snap.Index.Resolve(t.ID).AtLeast(domain.PermQueryBuilderAndNative) {
			unauthorized = append(unauthorized, t)
		}
	}
	if len(unauthorized) > 0 {
		return domain.Deny(domain.ReasonUnauthorizedTables, unauthorized...)
	}

	// A query referencing no tables at all falls through here and is
	// allowed: containment over the empty set holds vacuously, and the
	// no-access-anywhere gate was already passed.
	return domain.Allow(domain.ReasonTablesAuthorized)
}

func unresolvedStrings(unresolved []perms.Unresolved) []string {
	out := make([]string, len(unresolved))
	for i, u := range unresolved {
		out[i] = u.String()
	}
	return out
}
