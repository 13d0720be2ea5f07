package sky

import(
	"runtime"
	"sync"
)

// DefaultWorkers is used whenever a caller passes workers <= 0.
var DefaultWorkers = runtime.NumCPU()

// forEachIndex runs fn(i) for every i in [0,n), using a pool of
// goroutines. Each index is handed to exactly one worker, so fn may write
// to per-index output (a row, a column) without locking.
func forEachIndex(n, workers int, fn func(i int)) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > n {
		workers = n
	}
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	jobsChan := make(chan int, n)

	// Kick off worker pool
	for i:=0; i<workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				fn(job)
			}
		}()
	}

	// Feed in jobs
	for i:=0; i<n; i++ {
		jobsChan<- i
	}

	close(jobsChan)
	wg.Wait()
}
