package service

import (
	"hash/fnv"
	"sync"
)

const fillStripes = 256

// fillGuard orders cache fills against invalidations. A fill carries the
// generation observed before its load and is dropped if an invalidation of
// the same key happened since. Keys share fixed stripes, so a collision only
// skips a fill.
type fillGuard struct {
	mu   sync.Mutex
	gens [fillStripes]uint64
}

func (g *fillGuard) generation(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[stripeOf(key)]
}

func (g *fillGuard) invalidate(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[stripeOf(key)]++
}

// fill runs set while holding the guard if key is still at gen. An
// invalidation racing with set waits for it, and the delete that follows
// the invalidation then removes what set stored.
func (g *fillGuard) fill(key string, gen uint64, set func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[stripeOf(key)] != gen {
		return nil
	}
	return set()
}

func stripeOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % fillStripes)
}
