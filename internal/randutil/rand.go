// Package randutil centralises deterministic seeding for math/rand/v2.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. rand/v2's PCG
// wants two 64-bit seeds; deriving both here keeps every call site
// reproducible from a single value.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// mix is the splitmix64 finalizer, used to decorrelate the two seeds.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
