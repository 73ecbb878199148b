package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// QueryGateService is the entry point the query-execution path calls before
// dispatching a native query. It wraps the PolicyEvaluator and records every
// decision in the audit log.
type QueryGateService struct {
	evaluator *PolicyEvaluator
	audit     domain.AuditRepository
	logger    *slog.Logger
}

func NewQueryGateService(evaluator *PolicyEvaluator, audit domain.AuditRepository, logger *slog.Logger) *QueryGateService {
	return &QueryGateService{
		evaluator: evaluator,
		audit:     audit,
		logger:    logger.With("component", "query-gate"),
	}
}

// CheckNativeQuery evaluates the request and records the decision. Callers
// must treat a deny as a hard stop.
func (s *QueryGateService) CheckNativeQuery(ctx context.Context, req domain.NativeQueryRequest) (domain.Decision, error) {
	start := time.Now()
	decision, err := s.evaluator.CanExecuteNative(ctx, req)
	if err != nil {
		return domain.Decision{}, err
	}
	s.logAudit(ctx, req, decision, time.Since(start).Milliseconds())
	return decision, nil
}

// CanOpenNativeEditor reports editor access. Editor checks are not audited:
// only query decisions are.
func (s *QueryGateService) CanOpenNativeEditor(ctx context.Context, principal string, dataSourceID int64) (bool, error) {
	return s.evaluator.CanOpenNativeEditor(ctx, principal, dataSourceID)
}

// RecentDecisions returns the most recent audit entries, newest first.
func (s *QueryGateService) RecentDecisions(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.audit.ListRecent(ctx, limit)
}

func (s *QueryGateService) logAudit(ctx context.Context, req domain.NativeQueryRequest, decision domain.Decision, durationMs int64) {
	names := make([]string, len(decision.UnauthorizedTables))
	for i, t := range decision.UnauthorizedTables {
		names[i] = t.QualifiedName()
	}
	query := req.Query
	entry := &domain.AuditEntry{
		ID:                 uuid.NewString(),
		Principal:          req.Principal,
		DataSourceID:       req.DataSourceID,
		Outcome:            decision.Outcome,
		Reason:             decision.Reason,
		UnauthorizedTables: names,
		Query:              &query,
		DurationMs:         &durationMs,
	}
	// Best-effort: a failed audit insert never fails the decision.
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Error("audit insert failed",
			"principal", req.Principal,
			"data_source_id", req.DataSourceID,
			"error", err)
	}
}
