// Package transformer defines the batch-level transform contract shared by
// the cleaning and validation steps.
package transformer

import "salesload/internal/table"

// Transformer takes a batch and returns the batch to hand to the next step.
// A non-nil error is fatal for the run.
type Transformer interface {
	Apply(b *table.Batch) (*table.Batch, error)
}

