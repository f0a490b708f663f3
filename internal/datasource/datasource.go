// Package datasource defines where pipeline input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw input for a run. Name identifies the input in logs and
// in the persisted source_file provenance column.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
