package quiz

import (
	"math/rand"
	"sync"
	"time"
)

// Sampler picks n distinct ids out of pool. The pool must not be modified.
type Sampler interface {
	Sample(pool []int64, n int) []int64
}

// RandomSampler draws uniformly without replacement.
type RandomSampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomSampler(seed int64) *RandomSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSampler{rnd: rand.New(rand.NewSource(seed))}
}

func (s *RandomSampler) Sample(pool []int64, n int) []int64 {
	if n > len(pool) {
		n = len(pool)
	}
	ids := make([]int64, len(pool))
	copy(ids, pool)

	s.mu.Lock()
	defer s.mu.Unlock()
	// partial Fisher-Yates
	for i := 0; i < n; i++ {
		j := i + s.rnd.Intn(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n]
}
