// Package db opens the SQLite metastore holding permissions, catalog and
// audit data, and runs its migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// Mode selects pool sizing and write safety for an opened metastore.
type Mode string

const (
	// ModeWrite serializes writers: a single connection with immediate
	// transaction locking.
	ModeWrite Mode = "write"
	// ModeRead is a concurrent read pool.
	ModeRead Mode = "read"
)

// DSN hardening applied to every connection.
const (
	busyTimeoutMs = "5000"
	synchronous   = "NORMAL"
	journalMode   = "WAL"
)

// Open opens a *sql.DB pool on the metastore file. Both modes get WAL
// journaling, a 5s busy timeout, NORMAL synchronous and foreign keys on.
// maxOpen only applies to ModeRead; zero means 4.
func Open(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	switch mode {
	case ModeRead, ModeWrite:
	default:
		return nil, fmt.Errorf("invalid metastore mode %q", mode)
	}

	pool, err := sql.Open("sqlite3", dsn(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open metastore (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		pool.SetMaxOpenConns(maxOpen)
		pool.SetMaxIdleConns(maxOpen)
	}
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping metastore (%s): %w", mode, err)
	}
	return pool, nil
}

// OpenPair opens the single-writer pool and a read pool over the same
// metastore file. The split keeps SQLITE_BUSY out of the request path under
// concurrent HTTP load.
func OpenPair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = Open(path, ModeWrite, 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = Open(path, ModeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func dsn(path string, mode Mode) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMs)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
