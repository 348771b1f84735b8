package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// writeChunked applies write to every item, committing a fresh batch each platform.MaxBatchWrites
// items. Chunks committed before a failure stay committed.
func writeChunked[T any](ctx context.Context, store platform.DocumentStore, items []T, write func(platform.WriteBatch, T)) error {
	for start := 0; start < len(items); start += platform.MaxBatchWrites {
		end := min(start+platform.MaxBatchWrites, len(items))
		batch := store.Batch()
		for _, item := range items[start:end] {
			write(batch, item)
		}
		if err := batch.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
