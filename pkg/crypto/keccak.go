// Package crypto implements the digest, signature, and address primitives
// used throughout the protocol: Keccak-256 hashing, secp256k1 signing and
// recovery over Ethereum-prefixed messages, EIP-55 checksum formatting, and
// an LRU cache for recovered signatures.
package crypto

import (
	"golang.org/x/crypto/sha3"
)

// HashLength is the byte length of a Keccak-256 digest.
const HashLength = 32

// AddressLength is the byte length of an address (the low 20 bytes of a
// Keccak-256 digest over an uncompressed public key).
const AddressLength = 20

// Hash is a 32-byte Keccak-256 digest.
type Hash [HashLength]byte

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// BytesToAddress right-aligns b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Less orders addresses lexicographically by their byte representation. The
// protocol requires signature and approval maps to be stored in strictly
// ascending address order.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Keccak256 calculates the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a Hash.
func Keccak256Hash(data ...[]byte) Hash {
	return BytesToHash(Keccak256(data...))
}
