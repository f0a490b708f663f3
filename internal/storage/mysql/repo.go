// Package mysql implements a MySQL repository on sqlx and go-sql-driver. In
// MySQL a schema is a database, so EnsureSchema issues CREATE DATABASE.
// Rows are written with multi-row INSERTs, one transaction per batch.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"salesload/internal/ddl"
	"salesload/internal/storage"
	"salesload/internal/table"
)

// Dialect renders MySQL DDL.
var Dialect = ddl.Dialect{
	Name:       Kind,
	QuoteIdent: quoteIdent,
	Types: map[table.Kind]string{
		table.KindInt:   "BIGINT",
		table.KindFloat: "DOUBLE",
		table.KindDate:  "DATETIME(6)",
		table.KindText:  "TEXT",
	},
}

// maxPlaceholders is the server limit on bound parameters per statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN     string // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db?parseTime=true
	Logger  *log.Logger
	OnBatch func(rows int64)
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sqlx.DB
	cfg Config
}

// NewRepository validates the DSN, connects, pings and returns a Repository
// plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if _, err := driver.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	return r.db.GetContext(ctx, &one, "SELECT 1")
}

// EnsureSchema implements storage.Repository.
func (r *Repository) EnsureSchema(ctx context.Context, schema string) error {
	if schema == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(schema)); err != nil {
		return fmt.Errorf("create database: %w", describe(err))
	}
	return nil
}

// ReplaceTable drops and recreates def, then inserts rows in batches.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any, batchSize int) (int64, error) {
	create, err := ddl.BuildCreateTableSQL(Dialect, def)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, ddl.BuildDropTableSQL(Dialect, def)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", def.FQN(), describe(err))
	}
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", def.FQN(), describe(err))
	}

	width := len(def.Columns)
	if width > 0 && batchSize*width > maxPlaceholders {
		batchSize = maxPlaceholders / width
	}
	return storage.WriteBatches(ctx, r.cfg.Logger, r.cfg.OnBatch, def.ColumnNames(), rows, batchSize,
		func(ctx context.Context, _ []string, batch [][]any) (int64, error) {
			return r.insertBatch(ctx, def, batch)
		})
}

func (r *Repository) insertBatch(ctx context.Context, def ddl.TableDef, batch [][]any) (int64, error) {
	width := len(def.Columns)
	args := make([]any, 0, len(batch)*width)
	for i, row := range batch {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
		args = append(args, row...)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, ddl.BuildInsertSQL(Dialect, def, len(batch), ddl.QuestionMark), args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert: %w", describe(err))
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return res.RowsAffected()
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	var n int
	q := `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ?`
	if err := r.db.GetContext(ctx, &n, q, schema, name); err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return n > 0, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, schema, name string) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+Dialect.QuoteTable(schema, name)); err != nil {
		return 0, fmt.Errorf("count: %w", describe(err))
	}
	return n, nil
}

// quoteIdent quotes a MySQL identifier with backticks, escaping embedded
// backticks.
func quoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// describe prefixes server errors with their MySQL error number.
func describe(err error) error {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("mysql error %d: %w", me.Number, err)
	}
	return err
}
