package repositories

import (
	"context"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/panjf2000/ants/v2"
)

// fetchAll reads the given documents in parallel on pool. Missing documents and
// failed reads are skipped; the result keeps the order of paths. The first read
// error is returned alongside whatever was fetched.
func fetchAll(ctx context.Context, store platform.DocumentStore, pool *ants.Pool, paths []string) ([]platform.Document, error) {
	results := make([]platform.Document, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		i, path := i, path
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			results[i], errs[i] = store.Get(ctx, path)
		}
		if pool == nil {
			go task()
			continue
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	var firstErr error
	out := make([]platform.Document, 0, len(paths))
	for i, doc := range results {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if doc.Exists {
			out = append(out, doc)
		}
	}
	return out, firstErr
}
