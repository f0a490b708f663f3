package postgres

import (
	"context"

	"salesload/internal/storage"
)

// Kind selects this backend in storage.Config.
const Kind = "postgres"

// newRepository is swapped by tests to avoid real connections.
var newRepository = NewRepository

func init() { storage.Register(Kind, open) }

// open is the storage.Factory for this backend.
func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Logger: cfg.Logger, OnBatch: cfg.OnBatch})
	if err != nil {
		return nil, err
	}
	return storage.WithClose(r, closeFn), nil
}
