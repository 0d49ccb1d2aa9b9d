// Package sqlite implements store.Store on SQLite through modernc.org/sqlite.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql.tmpl
var schemaTemplate string

var schema = template.Must(template.New("schema").Parse(schemaTemplate))

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// maxParams bounds the number of bound parameters per IN clause.
const maxParams = 500

// Store provides SQLite-backed persistence for saves, collections and the
// entity catalog.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	cfg    config.SaveableConfig
	now    func() time.Time

	// Table names, validated as identifiers before interpolation.
	saves       string
	collections string
}

var _ store.Store = (*Store)(nil)

// Option configures Open.
type Option func(*Store)

// WithSaveableConfig overrides the engine defaults.
func WithSaveableConfig(cfg config.SaveableConfig) Option {
	return func(s *Store) { s.cfg = cfg }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens the database at path and applies the schema.
// Pragmas are set through the DSN so every pooled connection gets them, and
// write transactions begin IMMEDIATE so read-then-write sequences are atomic.
func Open(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		logger: logger,
		cfg:    config.DefaultSaveableConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("saveable config: %w", err)
	}
	s.saves = s.cfg.SavesTable
	s.collections = s.cfg.CollectionsTable

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	var ddl bytes.Buffer
	if err := schema.Execute(&ddl, map[string]string{
		"Saves":       s.saves,
		"Collections": s.collections,
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("render schema: %w", err)
	}
	if _, err := db.Exec(ddl.String()); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s.db = db
	logger.Debug("sqlite store opened",
		"path", path,
		"saves_table", s.saves,
		"collections_table", s.collections,
		"auto_ordering", s.cfg.AutoOrdering,
	)
	return s, nil
}

func dsn(path string) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
	}
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	b.WriteString("?_txlock=immediate")
	for _, p := range pragmas {
		b.WriteString("&_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// formatTime formats a time.Time in UTC for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullString treats the empty string as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// chunks splits ids into slices of at most maxParams.
func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxParams {
		out = append(out, ids[:maxParams])
		ids = ids[maxParams:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func toArgs(prefix []any, ids []string) []any {
	args := make([]any, 0, len(prefix)+len(ids))
	args = append(args, prefix...)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithMessage(msg)
	}
	return err
}

// closeRows reports the iteration error, if any, then the close error.
func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
