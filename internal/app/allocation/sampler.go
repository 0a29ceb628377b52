// internal/app/allocation/sampler.go
package allocation

import (
	"math/rand"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sampler draws uniform random samples without replacement. It is
// safe for concurrent use; seeding it makes allocation runs
// reproducible, which the tests rely on.
type Sampler struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSampler returns a Sampler seeded with the given value.
func NewSampler(seed int64) *Sampler {
	return &Sampler{r: rand.New(rand.NewSource(seed))}
}

// NewRandomSampler returns a Sampler seeded from the clock.
func NewRandomSampler() *Sampler {
	return NewSampler(time.Now().UnixNano())
}

// Pick returns n elements drawn uniformly at random from pool without
// replacement. If n >= len(pool) the whole pool is returned (shuffled).
// The input slice is not modified.
func (s *Sampler) Pick(pool []primitive.ObjectID, n int) []primitive.ObjectID {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}

	p := make([]primitive.ObjectID, len(pool))
	copy(p, pool)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher–Yates: only the first n positions are settled.
	for i := 0; i < n; i++ {
		j := i + s.r.Intn(len(p)-i)
		p[i], p[j] = p[j], p[i]
	}
	return p[:n]
}

// Between returns a uniform random int in [lo, hi]. If hi <= lo it
// returns lo.
func (s *Sampler) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.r.Intn(hi-lo+1)
}
