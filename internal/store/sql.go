package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql. Queries are written with ?
// placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

var _ Store = (*SQLStore)(nil)

// Open connects to driver ("sqlite" or "postgres") at url and migrates.
func Open(ctx context.Context, driver, url string, maxConns int) (*SQLStore, error) {
	var s *SQLStore
	switch driver {
	case "sqlite":
		db, err := sql.Open("sqlite", url)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite serialises writers; one connection avoids SQLITE_BUSY
		// and keeps :memory: databases on a single handle.
		db.SetMaxOpenConns(1)
		s = &SQLStore{db: db}
	case "postgres":
		db, err := sql.Open("pgx", url)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if maxConns > 0 {
			db.SetMaxOpenConns(maxConns)
		}
		s = &SQLStore{db: db, postgres: true}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := s.Ping(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.db.Close()
		return nil, err
	}
	log.Info().Str("driver", driver).Msg("Store ready")
	return s, nil
}

// OpenMemory returns a migrated in-memory SQLite store.
func OpenMemory(ctx context.Context) (*SQLStore, error) {
	return Open(ctx, "sqlite", ":memory:", 1)
}

func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

// Migrate creates every table and index that does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) get(ctx context.Context, dst interface{}, query string, args ...interface{}) error {
	return sqlscan.Get(ctx, s.db, dst, s.rebind(query), args...)
}

func (s *SQLStore) selectAll(ctx context.Context, dst interface{}, query string, args ...interface{}) error {
	return sqlscan.Select(ctx, s.db, dst, s.rebind(query), args...)
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

// getOne wraps get and maps sql.ErrNoRows to *ErrNotFound.
func (s *SQLStore) getOne(ctx context.Context, dst interface{}, entity, key, query string, args ...interface{}) error {
	if err := s.get(ctx, dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ErrNotFound{Entity: entity, Key: key}
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

// insert builds and runs an INSERT for the given columns.
func (s *SQLStore) insert(ctx context.Context, table string, cols []string, vals ...interface{}) error {
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + ph + ")"
	if _, err := s.exec(ctx, q, vals...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// now truncates to microseconds so values round-trip through PostgreSQL.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
