package model

import (
	"runtime"
	"sync"
)

// minColumnsPerWorker keeps narrow tables on the calling goroutine.
const minColumnsPerWorker = 16

// forColumns calls f(j) for every j in [0, n), fanning out over CPUs once
// there are enough columns to split. f must only touch column j.
func forColumns(n int, f func(j int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 2 || n < 2*minColumnsPerWorker {
		for j := 0; j < n; j++ {
			f(j)
		}
		return
	}

	chunk := max((n+workers-1)/workers, minColumnsPerWorker)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for j := lo; j < hi; j++ {
				f(j)
			}
		}(start, end)
	}
	wg.Wait()
}
