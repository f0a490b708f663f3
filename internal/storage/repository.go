// Package storage contains the storage-agnostic repository contract, the
// backend registry and the Persister that writes a validated batch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"salesload/internal/ddl"
)

var (
	// ErrConnect wraps every failure to open or ping a database.
	ErrConnect = errors.New("database connection failed")

	// ErrIntegrity is returned when the target table is absent after a write.
	ErrIntegrity = errors.New("post-write integrity check failed")
)

// Store is the set of database operations the pipeline needs. Backends
// implement it on their concrete repository and pair it with a release
// function through WithClose.
// Implementations must be safe for sequential use by a single run.
type Store interface {
	// Ping issues a trivial round trip (SELECT 1).
	Ping(ctx context.Context) error

	// EnsureSchema creates schema if it does not exist. Idempotent.
	EnsureSchema(ctx context.Context, schema string) error

	// ReplaceTable drops the table named by def if present, creates it from
	// def and inserts rows in batches of batchSize. Rows are aligned to
	// def.Columns. It returns the number of rows inserted.
	ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any, batchSize int) (int64, error)

	// TableExists reports whether schema.table exists.
	TableExists(ctx context.Context, schema, table string) (bool, error)

	// CountRows returns SELECT COUNT(*) for schema.table.
	CountRows(ctx context.Context, schema, table string) (int64, error)
}

// Repository is an open Store that owns its connection pool.
type Repository interface {
	Store

	// Close releases the connection pool. Calls after the first are no-ops.
	Close()
}

// WithClose returns s as a Repository whose Close runs closeFn once.
func WithClose(s Store, closeFn func()) Repository {
	return &closingStore{Store: s, closeFn: closeFn}
}

type closingStore struct {
	Store
	once    sync.Once
	closeFn func()
}

func (c *closingStore) Close() {
	c.once.Do(func() {
		if c.closeFn != nil {
			c.closeFn()
		}
	})
}

// Config is the backend-agnostic configuration passed to a Factory.
type Config struct {
	// Kind selects the backend: "mysql", "postgres", "mssql" or "sqlite".
	Kind string

	// DSN is the driver-specific connection string.
	DSN string

	// Logger receives batch progress lines. Defaults to log.Default().
	Logger *log.Logger

	// OnBatch, when set, is called with the row count of each committed
	// insert batch.
	OnBatch func(rows int64)
}

// Factory opens a Repository for cfg. Factories should ping before returning.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered backend kinds in sorted order.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a repository of cfg.Kind. Any failure from the backend is
// wrapped so that errors.Is(err, ErrConnect) holds.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	repo, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Kind, err)
	}
	return repo, nil
}
