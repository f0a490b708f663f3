// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. Schemas are modelled as
// attached database files that live next to the main database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"salesload/internal/ddl"
	"salesload/internal/storage"
	"salesload/internal/table"
)

// Dialect renders SQLite DDL.
var Dialect = ddl.Dialect{
	Name:       Kind,
	QuoteIdent: ddl.DoubleQuote,
	Types: map[table.Kind]string{
		table.KindInt:   "INTEGER",
		table.KindFloat: "REAL",
		table.KindDate:  "TIMESTAMP",
		table.KindText:  "TEXT",
	},
}

// maxParams keeps multi-row INSERTs under SQLite's bound-parameter limit.
const maxParams = 32766

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a file path or a "file:" URI, e.g. "sales.db" or
	// "file:sales.db?_pragma=busy_timeout(5000)".
	DSN string

	Logger *log.Logger

	// OnBatch is called after each committed insert batch.
	OnBatch func(rows int64)
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the database, pings it and returns a Repository plus a
// close function.
//
// The pool is limited to one connection so that ATTACH statements made by
// EnsureSchema stay visible to every later statement.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// EnsureSchema attaches <schema>.db from the main database's directory under
// the name schema. "main" and "" are the main database and need nothing.
func (r *Repository) EnsureSchema(ctx context.Context, schema string) error {
	if schema == "" || schema == "main" {
		return nil
	}
	attached, err := r.attached(ctx)
	if err != nil {
		return err
	}
	if attached[schema] {
		return nil
	}
	path := schemaPath(r.cfg.DSN, schema)
	if _, err := r.db.ExecContext(ctx, "ATTACH DATABASE ? AS "+ddl.DoubleQuote(schema), path); err != nil {
		return fmt.Errorf("sqlite: attach %s: %w", schema, err)
	}
	r.cfg.Logger.Printf("sqlite: attached schema %s at %s", schema, path)
	return nil
}

func (r *Repository) attached(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("sqlite: database_list: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var (
			seq  int
			name string
			file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("sqlite: database_list scan: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// schemaPath derives the attached file for schema from the main DSN.
func schemaPath(dsn, schema string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ":memory:"
	}
	return filepath.Join(filepath.Dir(path), schema+".db")
}

// ReplaceTable drops and recreates def, then inserts rows in batches, each
// batch inside its own transaction.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any, batchSize int) (int64, error) {
	create, err := ddl.BuildCreateTableSQL(Dialect, def)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, ddl.BuildDropTableSQL(Dialect, def)); err != nil {
		return 0, fmt.Errorf("sqlite: drop %s: %w", def.FQN(), err)
	}
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("sqlite: create %s: %w", def.FQN(), err)
	}

	cols := def.ColumnNames()
	if len(cols) > 0 && batchSize*len(cols) > maxParams {
		batchSize = maxParams / len(cols)
	}
	return storage.WriteBatches(ctx, r.cfg.Logger, r.cfg.OnBatch, cols, rows, batchSize, func(ctx context.Context, _ []string, batch [][]any) (int64, error) {
		return r.insertBatch(ctx, def, batch)
	})
}

func (r *Repository) insertBatch(ctx context.Context, def ddl.TableDef, batch [][]any) (int64, error) {
	width := len(def.Columns)
	args := make([]any, 0, len(batch)*width)
	for i, row := range batch {
		if len(row) != width {
			return 0, fmt.Errorf("sqlite: row %d has %d values, want %d", i, len(row), width)
		}
		args = append(args, row...)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, ddl.BuildInsertSQL(Dialect, def, len(batch), ddl.QuestionMark), args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return res.RowsAffected()
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	if schema == "" {
		schema = "main"
	}
	var n int
	q := "SELECT COUNT(*) FROM " + ddl.DoubleQuote(schema) + ".sqlite_master WHERE type = 'table' AND name = ?"
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: table exists: %w", err)
	}
	return n > 0, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, schema, name string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + Dialect.QuoteTable(schema, name)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s.%s: %w", schema, name, err)
	}
	return n, nil
}
