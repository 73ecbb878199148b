package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/perms"
)

type cacheKey struct {
	principal    string
	dataSourceID int64
}

type cacheEntry struct {
	snapshot perms.Snapshot
	builtAt  time.Time
}

// IndexCache holds permission snapshots keyed by (principal, data source).
// Snapshots are built lazily on first use and evicted when the permission
// administration side signals a change. Concurrent requests for the same key
// share a single build via singleflight; concurrent requests for different
// keys are independent.
type IndexCache struct {
	permissions domain.PermissionRepository
	catalog     domain.CatalogRepository
	logger      *slog.Logger

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	gen     uint64 // bumped by every invalidation
	group   singleflight.Group
}

func NewIndexCache(permissions domain.PermissionRepository, catalog domain.CatalogRepository, logger *slog.Logger) *IndexCache {
	return &IndexCache{
		permissions: permissions,
		catalog:     catalog,
		logger:      logger.With("component", "index-cache"),
		entries:     make(map[cacheKey]cacheEntry),
	}
}

// Get returns the snapshot for the pair, building it on a miss. An unknown
// principal or data source yields an empty snapshot (no tables, no grants),
// which downstream evaluation treats as no permissions granted.
func (c *IndexCache) Get(ctx context.Context, principal string, dataSourceID int64) (perms.Snapshot, error) {
	key := cacheKey{principal: principal, dataSourceID: dataSourceID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry.snapshot, nil
	}

	flightKey := fmt.Sprintf("%s\x00%d", principal, dataSourceID)
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		for {
			c.mu.RLock()
			entry, ok := c.entries[key]
			gen := c.gen
			c.mu.RUnlock()
			if ok {
				return entry.snapshot, nil
			}

			snapshot, err := c.build(ctx, principal, dataSourceID)
			if err != nil {
				return perms.Snapshot{}, err
			}

			c.mu.Lock()
			if c.gen == gen {
				c.entries[key] = cacheEntry{snapshot: snapshot, builtAt: time.Now()}
				c.mu.Unlock()
				return snapshot, nil
			}
			c.mu.Unlock()
			// An invalidation landed while this snapshot was being built,
			// so its permission reads may predate the change. The snapshot
			// must be neither stored nor served; rebuild from fresh rows.
		}
	})
	if err != nil {
		return perms.Snapshot{}, err
	}
	return v.(perms.Snapshot), nil
}

func (c *IndexCache) build(ctx context.Context, principal string, dataSourceID int64) (perms.Snapshot, error) {
	tables, err := c.catalog.ListTables(ctx, dataSourceID)
	if err != nil {
		return perms.Snapshot{}, fmt.Errorf("list tables for data source %d: %w", dataSourceID, err)
	}
	entries, err := c.permissions.ListForPrincipal(ctx, principal, dataSourceID)
	if err != nil {
		return perms.Snapshot{}, fmt.Errorf("list permissions for %q: %w", principal, err)
	}
	index, err := perms.BuildIndex(principal, dataSourceID, entries, tables)
	if err != nil {
		return perms.Snapshot{}, err
	}
	c.logger.Debug("built permission snapshot",
		"principal", principal,
		"data_source_id", dataSourceID,
		"tables", len(tables),
		"entries", len(entries))
	return perms.Snapshot{Index: index, Catalog: perms.NewCatalog(tables)}, nil
}

// Invalidate evicts the snapshot for one (principal, data source) pair.
// The generation bump also discards any snapshot still being built, whose
// reads may predate the change that triggered this call.
func (c *IndexCache) Invalidate(principal string, dataSourceID int64) {
	c.mu.Lock()
	delete(c.entries, cacheKey{principal: principal, dataSourceID: dataSourceID})
	c.gen++
	c.mu.Unlock()
}

// InvalidateDataSource evicts the snapshots of every principal on the data
// source. Used when a change notification does not name a principal.
func (c *IndexCache) InvalidateDataSource(dataSourceID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.entries {
		if key.dataSourceID == dataSourceID {
			delete(c.entries, key)
			n++
		}
	}
	c.gen++
	return n
}

// InvalidateAll evicts every snapshot.
func (c *IndexCache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[cacheKey]cacheEntry)
	c.gen++
	return n
}

// SweepOlderThan evicts snapshots built more than maxAge ago. The periodic
// sweep bounds how long a snapshot can outlive a missed invalidation.
func (c *IndexCache) SweepOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, entry := range c.entries {
		if entry.builtAt.Before(cutoff) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.logger.Debug("swept stale permission snapshots", "evicted", n)
	}
	return n
}

// Len returns the number of cached snapshots.
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
