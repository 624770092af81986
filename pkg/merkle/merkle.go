// Package merkle implements the balanced Merkle tree used to commit to
// hidden per-player data (a salted board, a hand of cards, ...) and to prove
// individual elements against that commitment without revealing the rest.
//
// Leaves are packed so that any two inclusion proofs differ in length by at
// most one hash: with full the smallest power of two >= n, the first full-n
// leaves sit at depth log2(full)-1 and the remaining ones at depth
// log2(full) (a truncated binary tree). That is the uniformity property the
// protocol relies on.
package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/horizon-games/arcadeum/pkg/crypto"
)

var (
	// ErrEmptyTree is returned when constructing a tree with no elements.
	ErrEmptyTree = errors.New("merkle: tree must have at least one element")
	// ErrSaltCountMismatch is returned when a salt vector's length doesn't
	// match the element count.
	ErrSaltCountMismatch = errors.New("merkle: salt count must match element count")
	// ErrIndexOutOfRange is returned by Proof for an out-of-bounds index.
	ErrIndexOutOfRange = errors.New("merkle: index out of range")
	// ErrTruncated is returned when deserializing a buffer that ends early.
	ErrTruncated = errors.New("merkle: truncated input")
	// ErrInvalidProof is returned when a proof fails structural validation.
	ErrInvalidProof = errors.New("merkle: invalid proof")
)

// hashLeaf and hashNode follow the protocol's hash formula exactly --
// leaf = Keccak(element [‖ salt]), internal = Keccak(left ‖ right) -- with
// no domain-separation prefix, so a root computed here matches one computed
// by any other implementation of the same formula (notably an on-chain
// adjudicator replaying a proof).
func hashLeaf(element, salt []byte) crypto.Hash {
	if salt == nil {
		return crypto.Keccak256Hash(element)
	}
	return crypto.Keccak256Hash(element, salt)
}

func hashNode(left, right crypto.Hash) crypto.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

// split returns the size of the left subtree for a (sub)tree holding n
// leaves, n >= 2, such that the first full-n leaves (full being the smallest
// power of two >= n) end up one level shallower than the rest.
func split(n int) int {
	full := 1
	for full < n {
		full *= 2
	}
	if left := n - full/2; left > full/4 {
		return left
	}
	return full / 4
}

// combine recursively folds leaf hashes into a single root.
func combine(hashes []crypto.Hash) crypto.Hash {
	n := len(hashes)
	if n == 1 {
		return hashes[0]
	}
	k := split(n)
	return hashNode(combine(hashes[:k]), combine(hashes[k:]))
}

// auditPath recursively collects the sibling hashes for leaf index, in
// leaf-to-root order.
func auditPath(hashes []crypto.Hash, index int) []crypto.Hash {
	n := len(hashes)
	if n == 1 {
		return nil
	}
	k := split(n)
	if index < k {
		path := auditPath(hashes[:k], index)
		return append(path, combine(hashes[k:]))
	}
	path := auditPath(hashes[k:], index-k)
	return append(path, combine(hashes[:k]))
}

// recompute replays the audit path against a leaf hash, returning the
// implied root and the unconsumed remainder of the proof. It mirrors the
// exact recursion auditPath used to produce the proof.
func recompute(leaf crypto.Hash, index, length int, proof []crypto.Hash) (crypto.Hash, []crypto.Hash, error) {
	if length == 1 {
		return leaf, proof, nil
	}
	k := split(length)
	var child crypto.Hash
	var rest []crypto.Hash
	var err error
	if index < k {
		child, rest, err = recompute(leaf, index, k, proof)
	} else {
		child, rest, err = recompute(leaf, index-k, length-k, proof)
	}
	if err != nil {
		return crypto.Hash{}, nil, err
	}
	if len(rest) == 0 {
		return crypto.Hash{}, nil, ErrInvalidProof
	}
	sibling, rest := rest[0], rest[1:]
	if index < k {
		return hashNode(child, sibling), rest, nil
	}
	return hashNode(sibling, child), rest, nil
}

// Tree is an immutable, optionally-salted Merkle tree.
type Tree struct {
	elements [][]byte
	salts    [][]byte // nil if the tree is unsalted
	leaves   []crypto.Hash
	root     crypto.Hash
}

// New builds an unsalted Merkle tree over elements.
func New(elements [][]byte) (*Tree, error) {
	return build(elements, nil)
}

// NewSalted builds a Merkle tree where each element is hashed together with
// a per-leaf salt, hiding the element's content from anyone who only sees
// the root until the salt is revealed via a Proof.
func NewSalted(elements [][]byte, salts [][]byte) (*Tree, error) {
	if len(salts) != len(elements) {
		return nil, ErrSaltCountMismatch
	}
	return build(elements, salts)
}

func build(elements [][]byte, salts [][]byte) (*Tree, error) {
	if len(elements) == 0 {
		return nil, ErrEmptyTree
	}
	leaves := make([]crypto.Hash, len(elements))
	for i, e := range elements {
		var salt []byte
		if salts != nil {
			salt = salts[i]
		}
		leaves[i] = hashLeaf(e, salt)
	}
	return &Tree{
		elements: elements,
		salts:    salts,
		leaves:   leaves,
		root:     combine(leaves),
	}, nil
}

// Root returns the tree's root hash.
func (t *Tree) Root() crypto.Hash { return t.root }

// Len returns the number of leaves in the tree.
func (t *Tree) Len() int { return len(t.elements) }

// Element returns the raw bytes committed at index i.
func (t *Tree) Element(i int) []byte { return t.elements[i] }

// Proof returns an inclusion proof for the element at index i.
func (t *Tree) Proof(i int) (*Proof, error) {
	if i < 0 || i >= len(t.elements) {
		return nil, ErrIndexOutOfRange
	}
	var salt []byte
	if t.salts != nil {
		salt = t.salts[i]
	}
	return &Proof{
		Element: append([]byte(nil), t.elements[i]...),
		Salt:    salt,
		Index:   i,
		Length:  len(t.elements),
		Hashes:  auditPath(t.leaves, i),
		root:    t.root,
	}, nil
}

// Proof is a self-contained inclusion proof: the element and its salt (if
// the tree was salted), its index and the tree's total leaf count (needed
// to replay the audit-path recursion), and the sibling hashes from leaf to
// root.
type Proof struct {
	Element []byte
	Salt    []byte // nil if the source tree was unsalted
	Index   int
	Length  int
	Hashes  []crypto.Hash

	root crypto.Hash // cached root of the tree this proof was drawn from, if known
}

// ComputeRoot recomputes the Merkle root implied by this proof.
func (p *Proof) ComputeRoot() (crypto.Hash, error) {
	leaf := hashLeaf(p.Element, p.Salt)
	root, rest, err := recompute(leaf, p.Index, p.Length, p.Hashes)
	if err != nil {
		return crypto.Hash{}, err
	}
	if len(rest) != 0 {
		return crypto.Hash{}, ErrInvalidProof
	}
	return root, nil
}

// Verify reports whether this proof's element is included under root.
func (p *Proof) Verify(root crypto.Hash) bool {
	got, err := p.ComputeRoot()
	return err == nil && got == root
}

// Serialize encodes the tree as: u32 count ‖ (u32 size ‖ bytes) × count ‖
// flat salts (u32 count ‖ (u32 size ‖ bytes) × count, with count == 0 when
// the tree is unsalted).
func (t *Tree) Serialize() []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(t.elements)))
	for _, e := range t.elements {
		buf = appendUint32(buf, uint32(len(e)))
		buf = append(buf, e...)
	}
	if t.salts == nil {
		buf = appendUint32(buf, 0)
	} else {
		buf = appendUint32(buf, uint32(len(t.salts)))
		for _, s := range t.salts {
			buf = appendUint32(buf, uint32(len(s)))
			buf = append(buf, s...)
		}
	}
	return buf
}

// Deserialize decodes a Tree previously produced by Serialize and
// recomputes its root.
func Deserialize(data []byte) (*Tree, error) {
	count, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	elements := make([][]byte, count)
	for i := range elements {
		var size uint32
		size, data, err = readUint32(data)
		if err != nil {
			return nil, err
		}
		elements[i], data, err = readBytes(data, int(size))
		if err != nil {
			return nil, err
		}
	}

	saltCount, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	var salts [][]byte
	if saltCount > 0 {
		if saltCount != count {
			return nil, ErrSaltCountMismatch
		}
		salts = make([][]byte, saltCount)
		for i := range salts {
			var size uint32
			size, data, err = readUint32(data)
			if err != nil {
				return nil, err
			}
			salts[i], data, err = readBytes(data, int(size))
			if err != nil {
				return nil, err
			}
		}
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("merkle: %d trailing bytes", len(data))
	}
	return build(elements, salts)
}

// Serialize encodes a proof as: u32 size ‖ element ‖ u32 salt_size ‖ salt? ‖
// u32 index ‖ u32 length ‖ 32×k hashes.
func (p *Proof) Serialize() []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(p.Element)))
	buf = append(buf, p.Element...)
	buf = appendUint32(buf, uint32(len(p.Salt)))
	buf = append(buf, p.Salt...)
	buf = appendUint32(buf, uint32(p.Index))
	buf = appendUint32(buf, uint32(p.Length))
	for _, h := range p.Hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// DeserializeProof decodes a Proof previously produced by Proof.Serialize.
func DeserializeProof(data []byte) (*Proof, error) {
	size, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	element, data, err := readBytes(data, int(size))
	if err != nil {
		return nil, err
	}
	saltSize, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	var salt []byte
	if saltSize > 0 {
		salt, data, err = readBytes(data, int(saltSize))
		if err != nil {
			return nil, err
		}
	}
	index, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	length, data, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	if len(data)%crypto.HashLength != 0 {
		return nil, ErrTruncated
	}
	hashes := make([]crypto.Hash, len(data)/crypto.HashLength)
	for i := range hashes {
		hashes[i] = crypto.BytesToHash(data[i*crypto.HashLength : (i+1)*crypto.HashLength])
	}
	return &Proof{
		Element: element,
		Salt:    salt,
		Index:   int(index),
		Length:  int(length),
		Hashes:  hashes,
	}, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func readUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, ErrTruncated
	}
	return binary.LittleEndian.Uint32(data[:4]), data[4:], nil
}

func readBytes(data []byte, n int) ([]byte, []byte, error) {
	if len(data) < n {
		return nil, nil, ErrTruncated
	}
	return append([]byte(nil), data[:n]...), data[n:], nil
}
