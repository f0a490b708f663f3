// Package postgres implements a Postgres repository using pgx v5. Rows are
// written with COPY in fixed-size batches.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesload/internal/ddl"
	"salesload/internal/storage"
	"salesload/internal/table"
)

// Dialect renders Postgres DDL.
var Dialect = ddl.Dialect{
	Name:       Kind,
	QuoteIdent: ddl.DoubleQuote,
	Types: map[table.Kind]string{
		table.KindInt:   "BIGINT",
		table.KindFloat: "DOUBLE PRECISION",
		table.KindDate:  "TIMESTAMP",
		table.KindText:  "TEXT",
	},
}

// Config holds Postgres repository configuration.
type Config struct {
	DSN     string // connection string for pgxpool
	Logger  *log.Logger
	OnBatch func(rows int64) // called per copied batch
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	return r.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// EnsureSchema implements storage.Repository.
func (r *Repository) EnsureSchema(ctx context.Context, schema string) error {
	if schema == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ddl.DoubleQuote(schema)); err != nil {
		return fmt.Errorf("create schema: %w", pgDetail(err))
	}
	return nil
}

// ReplaceTable drops and recreates def in one transaction, then COPYs rows in
// batches.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any, batchSize int) (int64, error) {
	create, err := ddl.BuildCreateTableSQL(Dialect, def)
	if err != nil {
		return 0, err
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ddl.BuildDropTableSQL(Dialect, def)); err != nil {
			return fmt.Errorf("drop: %w", pgDetail(err))
		}
		if _, err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("create: %w", pgDetail(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	ident := pgx.Identifier{def.Name}
	if def.Schema != "" {
		ident = pgx.Identifier{def.Schema, def.Name}
	}
	return storage.WriteBatches(ctx, r.cfg.Logger, r.cfg.OnBatch, def.ColumnNames(), rows, batchSize,
		func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
			n, err := r.pool.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(batch))
			if err != nil {
				return n, fmt.Errorf("copy: %w", pgDetail(err))
			}
			return n, nil
		})
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	if schema == "" {
		schema = "public"
	}
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`,
		schema, name,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, schema, name string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+Dialect.QuoteTable(schema, name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", pgDetail(err))
	}
	return n, nil
}

// pgDetail folds the server's detail and SQLSTATE into the error text while
// keeping the original error in the chain.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}
