package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to columns) and return the number of rows
// inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// DefaultBatchSize is the number of rows written per CopyFn call when the
// caller does not choose one.
const DefaultBatchSize = 1000

// WriteBatches splits rows into consecutive batches of batchSize and calls
// copyFn for each. It returns the total reported by copyFn and the first
// error encountered; no batch after a failed one is attempted.
//
// Progress is logged on each successful flush, and onBatch, when non-nil,
// receives the row count of every committed batch.
func WriteBatches(
	ctx context.Context,
	logger *log.Logger,
	onBatch func(rows int64),
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	var (
		total   int64
		batches int64
		start   = time.Now()
		last    = start
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			logger.Printf("loader: batch failed after=%d total=%d err=%v", n, total, err)
			return total, err
		}

		batches++
		if onBatch != nil {
			onBatch(n)
		}
		now := time.Now()
		since := now.Sub(last)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		logger.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		last = now
	}
	return total, nil
}
