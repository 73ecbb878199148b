package service

import (
	"context"
	"testing"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

func newTestGate(t *testing.T, entries []domain.PermissionEntry, audit *mockAuditRepo) *QueryGateService {
	t.Helper()
	ev := newTestEvaluator(t, entries, policyTables)
	return NewQueryGateService(ev, audit, discardLogger())
}

func TestGateRecordsAllowDecision(t *testing.T) {
	audit := &mockAuditRepo{}
	gate := newTestGate(t, mixedGrants(), audit)

	d, err := gate.CheckNativeQuery(context.Background(), domain.NativeQueryRequest{
		Principal:    "alice",
		DataSourceID: 1,
		Query:        "SELECT * FROM accounts",
	})
	if err != nil {
		t.Fatalf("CheckNativeQuery: %v", err)
	}
	if !d.Allowed() {
		t.Fatalf("decision = %+v, want allow", d)
	}

	recorded := audit.recorded()
	if len(recorded) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(recorded))
	}
	e := recorded[0]
	if e.Outcome != domain.OutcomeAllow || e.Principal != "alice" || e.DataSourceID != 1 {
		t.Errorf("audit entry = %+v", e)
	}
	if e.ID == "" || e.Query == nil || e.DurationMs == nil {
		t.Errorf("audit entry missing id/query/duration: %+v", e)
	}
}

func TestGateRecordsUnauthorizedTables(t *testing.T) {
	audit := &mockAuditRepo{}
	gate := newTestGate(t, mixedGrants(), audit)

	d, err := gate.CheckNativeQuery(context.Background(), domain.NativeQueryRequest{
		Principal:    "alice",
		DataSourceID: 1,
		Query:        "SELECT * FROM accounts, balances",
	})
	if err != nil {
		t.Fatalf("CheckNativeQuery: %v", err)
	}
	if d.Allowed() {
		t.Fatalf("decision = %+v, want deny", d)
	}

	recorded := audit.recorded()
	if len(recorded) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(recorded))
	}
	e := recorded[0]
	if e.Outcome != domain.OutcomeDeny || e.Reason != domain.ReasonUnauthorizedTables {
		t.Errorf("audit entry = %+v", e)
	}
	if len(e.UnauthorizedTables) != 1 || e.UnauthorizedTables[0] != "public.balances" {
		t.Errorf("unauthorized in audit = %v, want [public.balances]", e.UnauthorizedTables)
	}
}

func TestGateAuditFailureDoesNotFailDecision(t *testing.T) {
	audit := &mockAuditRepo{insertFn: func(context.Context, *domain.AuditEntry) error {
		return domain.ErrValidation("audit store offline")
	}}
	gate := newTestGate(t, mixedGrants(), audit)

	d, err := gate.CheckNativeQuery(context.Background(), domain.NativeQueryRequest{
		Principal:    "alice",
		DataSourceID: 1,
		Query:        "SELECT * FROM accounts",
	})
	if err != nil {
		t.Fatalf("CheckNativeQuery: %v", err)
	}
	if !d.Allowed() {
		t.Errorf("decision = %+v, audit failure must not change the outcome", d)
	}
}

func TestGateRecentDecisionsNewestFirst(t *testing.T) {
	audit := &mockAuditRepo{}
	gate := newTestGate(t, mixedGrants(), audit)
	ctx := context.Background()

	gate.CheckNativeQuery(ctx, domain.NativeQueryRequest{Principal: "alice", DataSourceID: 1, Query: "SELECT * FROM accounts"})
	gate.CheckNativeQuery(ctx, domain.NativeQueryRequest{Principal: "alice", DataSourceID: 1, Query: "SELECT * FROM balances"})

	recent, err := gate.RecentDecisions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeDeny {
		t.Errorf("recent = %+v, want the later deny", recent)
	}
}
