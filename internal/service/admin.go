package service

import (
	"context"
	"log/slog"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

// AdminService mutates permissions and the catalog, and keeps the snapshot
// cache coherent: every write evicts the snapshots it could have changed
// before the write returns. Catalog writes evict the whole data source;
// permission writes evict the single affected pair.
type AdminService struct {
	perms   domain.PermissionWriter
	catalog domain.CatalogWriter
	reader  domain.CatalogRepository
	cache   *IndexCache
	logger  *slog.Logger
}

func NewAdminService(perms domain.PermissionWriter, catalog domain.CatalogWriter, reader domain.CatalogRepository, cache *IndexCache, logger *slog.Logger) *AdminService {
	return &AdminService{
		perms:   perms,
		catalog: catalog,
		reader:  reader,
		cache:   cache,
		logger:  logger.With("component", "admin"),
	}
}

// SetPermission upserts one entry and evicts the affected principal's
// snapshot.
func (s *AdminService) SetPermission(ctx context.Context, entry domain.PermissionEntry) error {
	if err := s.perms.Set(ctx, entry); err != nil {
		return err
	}
	s.cache.Invalidate(entry.Principal, entry.DataSourceID)
	s.logger.Info("permission set",
		"principal", entry.Principal,
		"data_source_id", entry.DataSourceID,
		"scope", entry.Scope,
		"value", entry.Value)
	return nil
}

// DeletePermission removes one entry and evicts the affected principal's
// snapshot.
func (s *AdminService) DeletePermission(ctx context.Context, entry domain.PermissionEntry) error {
	if err := s.perms.Delete(ctx, entry); err != nil {
		return err
	}
	s.cache.Invalidate(entry.Principal, entry.DataSourceID)
	s.logger.Info("permission deleted",
		"principal", entry.Principal,
		"data_source_id", entry.DataSourceID,
		"scope", entry.Scope)
	return nil
}

func (s *AdminService) CreateDataSource(ctx context.Context, name, engine string) (*domain.DataSource, error) {
	return s.catalog.CreateDataSource(ctx, name, engine)
}

func (s *AdminService) GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error) {
	return s.reader.GetDataSource(ctx, id)
}

func (s *AdminService) ListTables(ctx context.Context, dataSourceID int64) ([]domain.Table, error) {
	return s.reader.ListTables(ctx, dataSourceID)
}

// AddTable registers a table and evicts every snapshot on the data source:
// a catalog change shifts how names in query text resolve for everyone.
func (s *AdminService) AddTable(ctx context.Context, dataSourceID int64, schemaName, tableName string) (*domain.Table, error) {
	t, err := s.catalog.AddTable(ctx, dataSourceID, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateDataSource(dataSourceID)
	return t, nil
}

func (s *AdminService) RemoveTable(ctx context.Context, dataSourceID, tableID int64) error {
	if err := s.catalog.RemoveTable(ctx, tableID); err != nil {
		return err
	}
	s.cache.InvalidateDataSource(dataSourceID)
	return nil
}

// Invalidate handles an external change notification. A nil principal means
// every principal on the data source.
func (s *AdminService) Invalidate(principal *string, dataSourceID int64) int {
	if principal != nil {
		s.cache.Invalidate(*principal, dataSourceID)
		return 1
	}
	return s.cache.InvalidateDataSource(dataSourceID)
}
