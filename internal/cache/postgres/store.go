// Package postgres persists status records in a Postgres table, one row per URL.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/gsc-deindexer/internal/cache"
	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "gsc_status_cache"

var copyColumns = []string{"site", "url", "status", "last_checked_at"}

// Config controls the Postgres connection pool used for status rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Store reads and replaces status rows for a site.
type Store struct {
	pool  pool
	table string
}

// New connects to Postgres and creates the table when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// EnsureSchema creates the status table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	site            TEXT        NOT NULL,
	url             TEXT        NOT NULL,
	status          TEXT        NOT NULL,
	last_checked_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (site, url)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Load returns every row stored for site.
func (s *Store) Load(ctx context.Context, site string) (cache.Records, error) {
	query := fmt.Sprintf(`SELECT url, status, last_checked_at FROM %s WHERE site = $1`, s.table)
	rows, err := s.pool.Query(ctx, query, site)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	records := cache.Records{}
	for rows.Next() {
		var (
			url       string
			status    string
			checkedAt time.Time
		)
		if err := rows.Scan(&url, &status, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		st := indexstatus.Status(status)
		if !st.IsValid() {
			return nil, fmt.Errorf("row %q has unknown status %q", url, status)
		}
		records[url] = cache.Record{Status: st, LastCheckedAt: checkedAt.UTC()}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Save replaces the rows for site inside a single transaction.
func (s *Store) Save(ctx context.Context, site string, records cache.Records) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE site = $1`, s.table), site); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("delete records: %w", err)
	}

	if len(records) > 0 {
		urls := make([]string, 0, len(records))
		for url := range records {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		rows := make([][]any, 0, len(urls))
		for _, url := range urls {
			rec := records[url]
			rows = append(rows, []any{site, url, string(rec.Status), rec.LastCheckedAt})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, copyColumns, pgx.CopyFromRows(rows)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("copy records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
