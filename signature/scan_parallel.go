package signature

import (
	"context"
	"sort"
	"sync"

	"emuram/process"
	"emuram/process/memory_map"

	"golang.org/x/sync/errgroup"
)

// ScanAllRanges scans every readable range for s with at most parallelism
// concurrent readers and returns all matches in ascending order. Locators
// never call this; it serves interactive tooling that sweeps a whole process.
func ScanAllRanges(ctx context.Context, p process.Process, s Signature, ranges []memory_map.MemoryRange, parallelism int) ([]process.Address, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	var mu sync.Mutex
	var results []process.Address

	for _, r := range ranges {
		if !r.IsReadable() {
			continue
		}
		r := r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matches := s.ScanAll(p, process.Address(r.Address), r.Size)
			if len(matches) == 0 {
				return nil
			}
			mu.Lock()
			results = append(results, matches...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results, nil
}
