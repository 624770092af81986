package arcadeum

import "github.com/holiman/uint256"

// Uint256Nonce is a Nonce backed by a 256-bit counter, for a domain whose
// genesis wants headroom past 2^64 actions (e.g. one seeded from an
// on-chain value already carried as a uint256, such as a wager or a block
// number) without switching representations mid-game.
type Uint256Nonce struct {
	v uint256.Int
}

// NewUint256Nonce wraps n as a Uint256Nonce.
func NewUint256Nonce(n *uint256.Int) Uint256Nonce {
	var nonce Uint256Nonce
	nonce.v.Set(n)
	return nonce
}

// Serialize returns the 32-byte little-endian encoding.
func (n Uint256Nonce) Serialize() []byte {
	b := n.v.Bytes32()
	// uint256.Bytes32 is big-endian; the wire format is little-endian
	// throughout, so reverse it.
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b[:]
}

// Next returns n+1.
func (n Uint256Nonce) Next() Nonce {
	var next Uint256Nonce
	next.v.AddUint64(&n.v, 1)
	return next
}

// Equal reports value equality.
func (n Uint256Nonce) Equal(other Nonce) bool {
	o, ok := other.(Uint256Nonce)
	return ok && o.v.Eq(&n.v)
}

// Int returns the nonce's value.
func (n Uint256Nonce) Int() *uint256.Int {
	var v uint256.Int
	v.Set(&n.v)
	return &v
}

// DecodeUint256Nonce decodes a Uint256Nonce from its 32-byte little-endian
// encoding.
func DecodeUint256Nonce(data []byte) (Nonce, error) {
	if len(data) != 32 {
		return nil, SoftErrorf("arcadeum: uint256 nonce must be 32 bytes, got %d", len(data))
	}
	var be [32]byte
	for i, j := 0, len(data)-1; i < len(data); i, j = i+1, j-1 {
		be[i] = data[j]
	}
	var v uint256.Int
	v.SetBytes(be[:])
	return Uint256Nonce{v: v}, nil
}
