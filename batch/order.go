package batch

import (
	"math/rand/v2"
	"sync"
)

// Order maps consumed values to slot indices within a batch. Permute
// returns a bijection of 0..n-1 where the value consumed i-th is placed
// into slot perm[i]. Nil result means identity.
type Order interface {
	Permute(n int) []int
}

type sequential struct{}

// Sequential returns order which keeps slots in consumption order.
func Sequential() Order {
	return sequential{}
}

// Permute returns nil, identity permutation.
func (sequential) Permute(int) []int {
	return nil
}

// String returns order name.
func (sequential) String() string {
	return "sequential"
}

// shuffled draws a new permutation for every batch.
type shuffled struct {
	m   sync.Mutex
	rnd *rand.Rand
}

// Shuffled returns order which places values into a random slot of the
// batch. Every batch gets its own permutation. The sequence of
// permutations is fully determined by the seed.
//
// The order keeps its generator state for its whole life. A second pass
// over a stream continues the sequence of the first one and gets different
// permutations. Use a new order with the same seed to repeat a pass.
func Shuffled(seed uint64) Order {
	return &shuffled{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Permute returns a random permutation of 0..n-1.
func (s *shuffled) Permute(n int) []int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.rnd.Perm(n)
}

// String returns order name.
func (s *shuffled) String() string {
	return "shuffled"
}
