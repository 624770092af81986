package arcadeum

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func uint256FromUint64(v uint64) *uint256.Int {
	u, _ := uint256.FromBig(new(big.Int).SetUint64(v))
	return u
}

func TestUint256NonceSerializeRoundTrip(t *testing.T) {
	// A value with bits set past the low 64, to exercise the full 32-byte
	// width rather than only the low word.
	wide := new(big.Int).Lsh(big.NewInt(1), 200)
	v, _ := uint256.FromBig(wide)
	n := NewUint256Nonce(v)

	data := n.Serialize()
	if len(data) != 32 {
		t.Fatalf("expected a 32-byte encoding, got %d", len(data))
	}

	decoded, err := DecodeUint256Nonce(data)
	if err != nil {
		t.Fatalf("DecodeUint256Nonce: %v", err)
	}
	if !decoded.Equal(n) {
		t.Fatalf("decoded nonce does not equal the original")
	}
	if got := decoded.(Uint256Nonce).Int(); !got.Eq(v) {
		t.Fatalf("decoded value mismatch: got %s, want %s", got, v)
	}
}

func TestUint256NonceNext(t *testing.T) {
	n := NewUint256Nonce(uint256FromUint64(41))
	next := n.Next()

	want := NewUint256Nonce(uint256FromUint64(42))
	if !next.Equal(want) {
		t.Fatalf("expected Next() == 42, got %v", next)
	}
	if n.Equal(next) {
		t.Fatalf("Next() must not mutate the receiver")
	}
}

func TestUint256NonceEqualRejectsOtherNonceTypes(t *testing.T) {
	n := NewUint256Nonce(uint256FromUint64(7))
	if n.Equal(Uint64Nonce(7)) {
		t.Fatalf("a Uint256Nonce must not equal a Uint64Nonce carrying the same numeric value")
	}
}

func TestDecodeUint256NonceRejectsWrongLength(t *testing.T) {
	if _, err := DecodeUint256Nonce(make([]byte, 31)); err == nil {
		t.Fatalf("expected an error decoding a short buffer")
	}
	if _, err := DecodeUint256Nonce(make([]byte, 33)); err == nil {
		t.Fatalf("expected an error decoding an over-long buffer")
	}
}
