// Package random provides the injectable random source used by game rolls.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/fx"
)

var Module = fx.Module("random",
	fx.Provide(ProvideSource),
)

// Source is every random decision the game makes. Implementations must be
// safe for concurrent use.
type Source interface {
	// Chance returns true with probability p, p in [0, 1].
	Chance(p float64) bool
	// Between returns a uniform integer in [min, max].
	Between(min, max int64) int64
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

type rngSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func New(seed int64) Source {
	return &rngSource{rng: rand.New(rand.NewSource(seed))}
}

// NewSeed generates a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func ProvideSource() (Source, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

func (s *rngSource) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *rngSource) Between(min, max int64) int64 {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Int63n(max-min+1)
}

func (s *rngSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
