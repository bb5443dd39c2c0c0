// Package rng holds the random streams used by map generation.
//
// Two streams are synchronised: every peer that seeds them with the same text
// seed and draws in the same order sees the same values. Server carries all
// generation decisions; Client is reserved for client-only cosmetic decisions
// that still need to agree between peers. Unsynced is seeded from the OS and
// must never influence shared state. Each stream is its own type so a function
// asking for *Server cannot be handed the unsynchronised one by mistake.
package rng

import (
	"fmt"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/talgya/campaign-map/internal/entropy"
)

// HashSeed folds a text seed into the 32-bit value the synced streams start from.
func HashSeed(seed string) int32 {
	h := xxhash.Sum64String(seed)
	return int32(uint32(h) ^ uint32(h>>32))
}

type stream struct {
	r *rand.Rand
}

func newStream(seed int64) stream {
	return stream{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a value in [0, 1).
func (s stream) Float64() float64 {
	return s.r.Float64()
}

// Range returns a value in [lo, hi).
func (s stream) Range(lo, hi float64) float64 {
	return lo + s.r.Float64()*(hi-lo)
}

// Intn returns a value in [0, n). n must be positive.
func (s stream) Intn(n int) int {
	return s.r.Intn(n)
}

// PickWeighted returns an index into weights chosen with probability
// proportional to its weight, or -1 if no weight is positive. Exactly one
// value is drawn whenever at least one weight is positive.
func (s stream) PickWeighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	roll := s.r.Float64() * total
	cumulative := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if roll < cumulative {
			return i
		}
	}
	// Rounding left the roll past the final bucket.
	return last
}

// Server is the synchronised stream that drives map generation.
type Server struct{ stream }

// Client is the synchronised stream for client-only decisions.
type Client struct{ stream }

// Unsynced is seeded per process and never reproducible.
type Unsynced struct{ stream }

// Set bundles the three streams derived from one text seed.
type Set struct {
	Server   *Server
	Client   *Client
	Unsynced *Unsynced

	seed string
}

// New seeds the synced streams from seed and the unsynced stream from the OS.
func New(seed string) *Set {
	s := &Set{seed: seed}
	s.Reset()
	s.Unsynced = &Unsynced{newStream(entropy.Seed())}
	return s
}

// Reset rewinds both synced streams to the start of the seed's sequence.
func (s *Set) Reset() {
	base := int64(HashSeed(s.seed))
	s.Server = &Server{newStream(base)}
	s.Client = &Client{newStream(int64(HashSeed(s.seed + "/client")))}
}

// Seed returns the text seed the synced streams were derived from.
func (s *Set) Seed() string {
	return s.seed
}

// ForRound returns a synced stream for one world progression round. It
// depends only on the seed and round number, so peers that resumed from a
// save and peers that never stopped draw the same values for the same round.
func (s *Set) ForRound(round int) *Server {
	return &Server{newStream(int64(HashSeed(fmt.Sprintf("%s/round/%d", s.seed, round))))}
}
