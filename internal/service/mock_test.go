package service

import (
	"context"
	"sync"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// === Permission Repository Mock ===

type mockPermissionRepo struct {
	listFn func(ctx context.Context, principal string, dataSourceID int64) ([]domain.PermissionEntry, error)
	calls  int
}

func (m *mockPermissionRepo) ListForPrincipal(ctx context.Context, principal string, dataSourceID int64) ([]domain.PermissionEntry, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, principal, dataSourceID)
	}
	return nil, nil
}

// === Catalog Repository Mock ===

type mockCatalogRepo struct {
	getFn        func(ctx context.Context, id int64) (*domain.DataSource, error)
	listTablesFn func(ctx context.Context, dataSourceID int64) ([]domain.Table, error)
}

func (m *mockCatalogRepo) GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	panic("unexpected call to mockCatalogRepo.GetDataSource")
}

func (m *mockCatalogRepo) ListTables(ctx context.Context, dataSourceID int64) ([]domain.Table, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, dataSourceID)
	}
	return nil, nil
}

// === Audit Repository Mock ===

type mockAuditRepo struct {
	mu       sync.Mutex
	entries  []domain.AuditEntry
	insertFn func(ctx context.Context, entry *domain.AuditEntry) error
}

func (m *mockAuditRepo) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockAuditRepo) recorded() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
