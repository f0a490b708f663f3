// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API for batch writes.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"salesload/internal/ddl"
	"salesload/internal/storage"
	"salesload/internal/table"
)

// Dialect renders SQL Server DDL.
var Dialect = ddl.Dialect{
	Name:       Kind,
	QuoteIdent: msIdent,
	Types: map[table.Kind]string{
		table.KindInt:   "BIGINT",
		table.KindFloat: "FLOAT",
		table.KindDate:  "DATETIME2",
		table.KindText:  "NVARCHAR(MAX)",
	},
}

// Config holds MSSQL repository configuration.
type Config struct {
	DSN     string
	Logger  *log.Logger
	OnBatch func(rows int64)
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// EnsureSchema implements storage.Repository.
func (r *Repository) EnsureSchema(ctx context.Context, schema string) error {
	if schema == "" {
		return nil
	}
	// CREATE SCHEMA must be the only statement in its batch, hence EXEC.
	q := `IF SCHEMA_ID(@p1) IS NULL EXEC('CREATE SCHEMA ' + QUOTENAME(@p1))`
	if _, err := r.db.ExecContext(ctx, q, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ReplaceTable drops and recreates def, then bulk copies rows in batches.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any, batchSize int) (int64, error) {
	create, err := ddl.BuildCreateTableSQL(Dialect, def)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, ddl.BuildDropTableSQL(Dialect, def)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", def.FQN(), err)
	}
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", def.FQN(), err)
	}
	return storage.WriteBatches(ctx, r.cfg.Logger, r.cfg.OnBatch, def.ColumnNames(), rows, batchSize,
		func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
			return r.copyIn(ctx, Dialect.QuoteTable(def.Schema, def.Name), cols, batch)
		})
}

// copyIn performs a bulk insert of rows into table inside one transaction.
func (r *Repository) copyIn(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	if schema == "" {
		schema = "dbo"
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`,
		schema, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return n > 0, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, schema, name string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT_BIG(*) FROM "+Dialect.QuoteTable(schema, name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
