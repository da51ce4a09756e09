// Package sqlstore implements store.Store on top of sqlx for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wiredm/internal/store"
)

// Store implements store.Store.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

var _ store.Store = (*Store)(nil)

// Open connects to the database identified by driver and dsn.
func Open(driver, dsn string) (*Store, error) {
	return NewWithSetup(driver, dsn, nil)
}

// NewWithSetup opens the database and runs setup before the first ping.
// Tests use it to apply the schema on an in-memory database.
func NewWithSetup(driver, dsn string, setup func(*sqlx.DB) error) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if driver == sqliteDialect.driver && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == sqliteDialect.driver {
		// SQLite works best with a single connection; it also keeps :memory: shared.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &Store{db: db, dialect: d}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) mapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	if field, ok := s.dialect.uniqueViolation(err); ok {
		return fmt.Errorf("%s: %w", op, &store.ConflictError{Field: field})
	}
	return fmt.Errorf("%s: %w", op, err)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
