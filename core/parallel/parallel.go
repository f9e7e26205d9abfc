// Package parallel runs index ranges across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into one contiguous range per CPU core and
// calls fn for each range (start, end) concurrently. It returns when every
// call has finished.
func Parallelize(items int, fn func(start, end int)) {
	_ = ParallelizeErr(items, 0, func(start, end int) error {
		fn(start, end)
		return nil
	})
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ParallelizeErr is Parallelize with at most maxWorkers goroutines
// (0 means runtime.NumCPU) and error collection. Every range runs to
// completion; the error of the lowest failing range is returned so the
// result does not depend on scheduling.
func ParallelizeErr(items, maxWorkers int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := maxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers
	errs := make([]error, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, items)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			errs[w] = fn(s, e)
		}(i, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
