package sampler

import (
	"context"
	"slices"
	"sync"

	"github.com/NetPo4ki/go-semq/interop/errgroup"
	"github.com/NetPo4ki/go-semq/semaphore"
)

// IsPrime reports whether n is prime.
func IsPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// FindPrimes returns the primes in [1, limit] in ascending order. The range
// is split into `ranges` contiguous chunks, one goroutine each, and at most
// `parallel` chunks are scanned at once. Every goroutine appends to one
// shared, mutex-guarded slice.
func FindPrimes(ctx context.Context, limit, ranges, parallel int) ([]int, error) {
	if limit < 1 {
		return nil, nil
	}
	ranges = min(max(ranges, 1), limit)
	sem, err := semaphore.New(max(parallel, 1))
	if err != nil {
		return nil, err
	}
	var (
		mu     sync.Mutex
		primes []int
	)
	g, gctx := errgroup.WithContext(ctx, sem)
	width := limit / ranges
	for i := 0; i < ranges; i++ {
		lo, hi := i*width+1, (i+1)*width
		if i == ranges-1 {
			hi = limit
		}
		g.Go(func() error {
			for n := lo; n <= hi; n++ {
				if n%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if IsPrime(n) {
					mu.Lock()
					primes = append(primes, n)
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(primes)
	return primes, nil
}
