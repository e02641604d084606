package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"docschema/internal/config"
)

const maxBusyRetries = 3

// Open connects to the configured database and returns the handle together
// with its dialect.
func Open(cfg *config.DBConfig) (*sqlx.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", dialect.Name(), err)
	}
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	return db, dialect, nil
}

// Store is the SQL-backed schema store and dynamic table repository.
type Store struct {
	db      *sqlx.DB
	dialect Dialect

	mu     sync.Mutex
	tables map[string]*sync.Mutex
}

// New creates a Store over an open database whose catalog is migrated.
func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, tables: make(map[string]*sync.Mutex)}
}

// tableLock returns the in-process writer lock of table. Cross-process
// exclusion is left to the dialect.
func (s *Store) tableLock(table string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.tables[table]
	if !ok {
		l = &sync.Mutex{}
		s.tables[table] = l
	}
	return l
}

// runTx runs fn in a transaction, retrying with linear backoff when the
// database reports a transient lock timeout.
func (s *Store) runTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		err = s.tx(ctx, fn)
		if err == nil || !s.dialect.IsBusy(err) {
			return err
		}
	}
	return err
}

func (s *Store) tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
