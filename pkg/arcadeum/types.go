package arcadeum

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/horizon-games/arcadeum/pkg/crypto"
)

// Address, Hash and Signature are re-exported from pkg/crypto so that
// domain packages importing arcadeum rarely need to import crypto directly.
type (
	Address   = crypto.Address
	Hash      = crypto.Hash
	Signature = crypto.Signature
)

// EIP55 formats an address using the mixed-case checksum encoding.
func EIP55(a Address) string { return crypto.EIP55(a) }

// Recover recovers the address that produced signature over message.
func Recover(message []byte, signature Signature) (Address, error) {
	return crypto.Recover(message, signature)
}

// Sign signs message with a raw secp256k1 private key.
func Sign(message []byte, secret []byte) (Signature, error) {
	return crypto.Sign(message, secret)
}

// SignWithKey signs message with an already-parsed ecdsa private key.
func SignWithKey(message []byte, key *ecdsa.PrivateKey) (Signature, error) {
	return crypto.SignWithKey(message, key)
}

// AddressOf derives the address owning an uncompressed secp256k1 public key.
func AddressOf(uncompressedPubkey []byte) Address {
	return crypto.AddressOf(uncompressedPubkey)
}

// Nonce is a strictly-increasing counter embedded in a ProofState. Concrete
// domains pick the integer width that fits their expected action volume.
type Nonce interface {
	// Serialize returns the little-endian byte encoding of the nonce.
	Serialize() []byte
	// Next returns the successor nonce.
	Next() Nonce
	// Equal reports whether two nonces represent the same value.
	Equal(Nonce) bool
}

// ID uniquely identifies a single game instance (e.g. a random session
// identifier chosen at genesis).
type ID interface {
	Serialize() []byte
}

// Action is a single transcript entry: either a PlayerAction (a Play,
// Certify or Approve, see proofaction.go) or an opaque domain action
// embedded via ProofAction.Game. Actions are immutable once signed.
type Action interface {
	Serialize() []byte
}

// State is the domain game state a ProofState wraps. Implementations must
// be deterministic: given the same starting state and action, Apply must
// always produce the same resulting state (or the same error).
type State interface {
	// Version identifies the wire format of Serialize's output. A
	// deserializer rejects input carrying any other version unless the
	// caller explicitly opts out of the check.
	Version() []byte
	// Serialize encodes the state, version bytes not included (the
	// embedding ProofState/RootProof wire format carries the version
	// alongside the state bytes, see wire format in rootproof.go).
	Serialize() []byte
	// IsSerializable reports whether the state can be safely serialized
	// right now. Some games refuse serialization mid-animation or while a
	// suspendable transition (see pkg/store) is pending.
	IsSerializable() bool
	// Apply executes action (played by player, or nil for an
	// owner-authored action) against the state, returning the resulting
	// state. A nil player is only valid for actions the domain recognises
	// as owner-only.
	Apply(player *Player, action Action) (State, error)
}

// Codec supplies the domain-specific decode functions a generic
// RootProof/Proof/Diff needs but cannot obtain from a bare interface value:
// Go interfaces carry no constructor, so deserialization is parameterized
// explicitly rather than dispatched through a registry.
type Codec struct {
	// DecodeState parses the domain state bytes that follow the ProofState
	// header (see ProofState.Serialize) into a concrete State.
	DecodeState func(data []byte) (State, error)
	// DecodeAction parses a single domain action's bytes (the payload of a
	// ProofAction tagged Game).
	DecodeAction func(data []byte) (Action, error)
	// DecodeNonce parses a nonce's serialized bytes.
	DecodeNonce func(data []byte) (Nonce, error)
	// DecodeID parses an ID's serialized bytes.
	DecodeID func(data []byte) (ID, error)
}

// --- Built-in Nonce implementations -----------------------------------

// Uint64Nonce is a Nonce backed by a plain uint64 counter, adequate for any
// game whose transcript never approaches 2^64 actions.
type Uint64Nonce uint64

// Serialize returns the 8-byte little-endian encoding.
func (n Uint64Nonce) Serialize() []byte {
	w := make([]byte, 8)
	v := uint64(n)
	for i := 0; i < 8; i++ {
		w[i] = byte(v >> (8 * i))
	}
	return w
}

// Next returns n+1.
func (n Uint64Nonce) Next() Nonce { return n + 1 }

// Equal reports value equality.
func (n Uint64Nonce) Equal(other Nonce) bool {
	o, ok := other.(Uint64Nonce)
	return ok && o == n
}

// DecodeUint64Nonce decodes a Uint64Nonce from its 8-byte encoding.
func DecodeUint64Nonce(data []byte) (Nonce, error) {
	if len(data) != 8 {
		return nil, SoftErrorf("arcadeum: uint64 nonce must be 8 bytes, got %d", len(data))
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(data[i]) << (8 * i)
	}
	return Uint64Nonce(v), nil
}

// --- Built-in ID implementation ----------------------------------------

// RawID is an ID backed by an opaque byte string, suitable for a randomly
// generated session identifier.
type RawID []byte

// Serialize returns the raw bytes unchanged.
func (id RawID) Serialize() []byte { return []byte(id) }

// DecodeRawID decodes a RawID: the entire input is taken verbatim.
func DecodeRawID(data []byte) (ID, error) {
	return RawID(append([]byte(nil), data...)), nil
}

// --- Subkey delegation text formats (spec §4.7) ------------------------

// ChallengeMessage is the text a player's key signs to certify address as a
// subkey that may sign on that player's behalf.
func ChallengeMessage(address Address) string {
	return fmt.Sprintf("Sign to play! This won't cost anything.\n\n%s\n", EIP55(address))
}

// ApprovalMessage is the text the owner signs to approve subkey as a signer
// for player.
func ApprovalMessage(player, subkey Address) string {
	return fmt.Sprintf("Approve %s for %s.", EIP55(subkey), EIP55(player))
}
