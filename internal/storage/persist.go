package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"salesload/internal/ddl"
	"salesload/internal/table"
)

// Provenance column names appended by the Persister.
const (
	ColLoadedAt   = "loaded_at"
	ColSourceFile = "source_file"
)

// Default target used when the Persister fields are empty.
const (
	DefaultSchema = "retail_db"
	DefaultTable  = "best_buy_sales"
)

// Persister writes a validated batch to schema.table with full-replace
// semantics and verifies the result.
type Persister struct {
	Schema     string
	Table      string
	SourceFile string

	// BatchSize is the number of rows per insert batch. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// Now stamps loaded_at. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Persist ensures the schema, stamps provenance columns onto b, replaces the
// target table with b's rows, checks the table exists and returns its row
// count.
func (p *Persister) Persist(ctx context.Context, repo Repository, b *table.Batch) (int64, error) {
	schema, name := p.target()
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	if err := repo.EnsureSchema(ctx, schema); err != nil {
		return 0, fmt.Errorf("ensure schema %s: %w", schema, err)
	}

	if err := b.Set(ColLoadedAt, table.KindDate, now().UTC()); err != nil {
		return 0, fmt.Errorf("stamp %s: %w", ColLoadedAt, err)
	}
	if err := b.Set(ColSourceFile, table.KindText, p.SourceFile); err != nil {
		return 0, fmt.Errorf("stamp %s: %w", ColSourceFile, err)
	}

	def := ddl.FromBatch(schema, name, b)
	logger.Printf("persist: replacing %s with %s rows (batch_size=%d)",
		def.FQN(), humanize.Comma(int64(b.Len())), batchSize)

	inserted, err := repo.ReplaceTable(ctx, def, b.Rows(), batchSize)
	if err != nil {
		return inserted, fmt.Errorf("replace %s: %w", def.FQN(), err)
	}

	ok, err := repo.TableExists(ctx, schema, name)
	if err != nil {
		return inserted, fmt.Errorf("check %s exists: %w", def.FQN(), err)
	}
	if !ok {
		return inserted, fmt.Errorf("%w: table %s not found after write", ErrIntegrity, def.FQN())
	}

	count, err := repo.CountRows(ctx, schema, name)
	if err != nil {
		return inserted, fmt.Errorf("count %s: %w", def.FQN(), err)
	}
	logger.Printf("persist: table %s now has %s rows", def.FQN(), humanize.Comma(count))
	return count, nil
}

func (p *Persister) target() (schema, name string) {
	schema, name = p.Schema, p.Table
	if schema == "" {
		schema = DefaultSchema
	}
	if name == "" {
		name = DefaultTable
	}
	return schema, name
}
