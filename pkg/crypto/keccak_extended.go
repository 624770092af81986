package crypto

// Extended Keccak utilities: Keccak-512 and an incremental Keccak-256 hasher
// for digesting data fed in chunks.

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Keccak512 calculates the Keccak-512 hash of the given data.
func Keccak512(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak512()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak512Hash calculates Keccak-512 and returns the result as a 64-byte array.
func Keccak512Hash(data ...[]byte) [64]byte {
	var h [64]byte
	copy(h[:], Keccak512(data...))
	return h
}

// IncrementalHasher is an incremental Keccak-256 hasher that allows data to
// be fed in chunks.
type IncrementalHasher struct {
	state hash.Hash
	size  int
}

// NewIncrementalHasher creates a new incremental Keccak-256 hasher.
func NewIncrementalHasher() *IncrementalHasher {
	return &IncrementalHasher{state: sha3.NewLegacyKeccak256()}
}

// Write feeds data into the hasher.
func (h *IncrementalHasher) Write(data []byte) (int, error) {
	n, err := h.state.Write(data)
	h.size += n
	return n, err
}

// WriteUint32 writes a uint32 in little-endian encoding, matching the wire
// format's length-prefix convention.
func (h *IncrementalHasher) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	h.state.Write(buf[:])
	h.size += 4
}

// Sum256 finalizes the hash and returns the Keccak-256 digest. After calling
// Sum256 the hasher must not be reused.
func (h *IncrementalHasher) Sum256() Hash {
	return BytesToHash(h.state.Sum(nil))
}

// Size returns the total number of bytes written so far.
func (h *IncrementalHasher) Size() int { return h.size }
