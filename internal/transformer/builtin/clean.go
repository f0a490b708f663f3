// Package builtin contains the cleaning and validation transforms applied to
// a loaded sales batch.
package builtin

import (
	"log"

	"salesload/internal/table"
	"salesload/internal/transformer"
)

var _ transformer.Transformer = (*Clean)(nil)

// CleanStats reports what a Clean pass changed.
type CleanStats struct {
	Filled  int // missing numeric cells replaced with zero
	Dropped int // rows removed for a missing date
}

// Clean fills missing numeric values with zero and then drops rows whose date
// is missing. No other rows are removed.
type Clean struct {
	// DateColumn names the date column. Defaults to "date".
	DateColumn string

	// Logger receives the dropped-rows warning. Defaults to log.Default().
	Logger *log.Logger

	// Stats holds the counts from the most recent Apply.
	Stats CleanStats
}

// Apply cleans b in place and returns it.
func (c *Clean) Apply(b *table.Batch) (*table.Batch, error) {
	c.Stats = CleanStats{}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}

	for _, col := range b.Columns {
		if !col.Kind.Numeric() {
			continue
		}
		var zero any = float64(0)
		if col.Kind == table.KindInt {
			zero = int64(0)
		}
		for i, v := range col.Values {
			if v == nil {
				col.Values[i] = zero
				c.Stats.Filled++
			}
		}
	}

	name := c.DateColumn
	if name == "" {
		name = "date"
	}
	dates, ok := b.Column(name)
	if !ok {
		return b, nil
	}
	if missing := dates.Missing(); missing > 0 {
		logger.Printf("clean: removing %d rows with invalid dates", missing)
		c.Stats.Dropped = b.Filter(func(i int) bool { return dates.Values[i] != nil })
	}
	return b, nil
}
