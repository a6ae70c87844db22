package physics

import (
	"runtime"
	"sync"
)

// parallelChunk is the smallest number of particles handed to a worker.
const parallelChunk = 512

// parallelFor calls fn over [0, n) split into contiguous chunks, one
// goroutine per chunk. Small ranges run on the calling goroutine.
func parallelFor(n, minChunk int, fn func(start, end int)) {
	workers := min(runtime.GOMAXPROCS(0), n/max(minChunk, 1))
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}

// eachParticle applies fn to every particle. Particles are independent
// during a push, so large systems are split across goroutines.
func (s *Simulation) eachParticle(fn func(p *Particle)) {
	parallelFor(len(s.particles), parallelChunk, func(start, end int) {
		for _, p := range s.particles[start:end] {
			fn(p)
		}
	})
}
