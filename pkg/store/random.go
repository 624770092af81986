package store

import "encoding/binary"

// XorShiftRNG is a small, fast, fully deterministic PRNG seeded from the
// commit-reveal exchange's XORed reply/reveal values. It is not
// cryptographically secure: it exists so that once a seed is agreed upon,
// both sides can deterministically derive the same sequence of game
// randomness from it.
type XorShiftRNG struct {
	state uint64
}

// NewXorShiftRNG seeds the generator from seed, using its first 8 bytes (or
// fewer, zero-padded) folded with a fixed odd constant so an all-zero seed
// doesn't produce an all-zero (stuck) state.
func NewXorShiftRNG(seed []byte) *XorShiftRNG {
	var buf [8]byte
	copy(buf[:], seed)
	s := binary.LittleEndian.Uint64(buf[:]) ^ 0x9E3779B97F4A7C15
	if s == 0 {
		s = 0x9E3779B97F4A7C15
	}
	return &XorShiftRNG{state: s}
}

// Uint64 returns the next pseudo-random value via xorshift64*.
func (r *XorShiftRNG) Uint64() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 0x2545F4914F6CDD1D
}

// Fill writes pseudo-random bytes into b.
func (r *XorShiftRNG) Fill(b []byte) {
	for len(b) > 0 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], r.Uint64())
		n := copy(b, buf[:])
		b = b[n:]
	}
}

// Intn returns a pseudo-random integer in [0, n).
func (r *XorShiftRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint64() % uint64(n))
}
