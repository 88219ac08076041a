// Package randutil seeds the deterministic RNGs behind dealing and button
// draws. Tables and tests pass one int64 seed; the helper expands it into
// the two 64-bit words rand/v2's PCG wants, so equal seeds replay equal
// deals.
package randutil

import rand "math/rand/v2"

// New returns a rand.Rand that replays the same sequence for the same seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(scramble(u), scramble(u+0x9e3779b97f4a7c15)))
}

// scramble is the splitmix64 finalizer. The lobby derives per-table seeds
// by offsetting a base seed, and finalizing keeps those nearby seeds from
// producing correlated streams.
func scramble(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
