package service

import "sync"

// runBounded invokes fn(0..n-1) concurrently with at most limit calls in
// flight, and waits for all of them. A non-positive limit means no cap
// beyond n itself.
func runBounded(n, limit int, fn func(i int)) {
	if n == 0 {
		return
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
