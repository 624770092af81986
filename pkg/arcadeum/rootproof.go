package arcadeum

import (
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// RootProof is the genesis commitment a game's entire future is built on:
// a starting ProofState, the longest prefix of a larger action list that
// could be folded into that state while it stayed serializable, the
// irreducible tail that couldn't, and a signature over the whole thing.
type RootProof struct {
	state   *ProofState
	actions []ProofAction
	author  Address
	sig     Signature
}

// State returns the folded starting state.
func (r *RootProof) State() *ProofState { return r.state }

// Actions returns the irreducible action tail.
func (r *RootProof) Actions() []ProofAction { return r.actions }

// Author returns the address recovered from the root proof's signature.
func (r *RootProof) Author() Address { return r.author }

// NewRootProof folds the longest prefix of actions for which the state
// remains serializable into state, signs the result with sign, and derives
// Author from the resulting signature.
func NewRootProof(state *ProofState, actions []ProofAction, sign func([]byte) (Signature, error)) (*RootProof, error) {
	folded := state
	i := 0
	for i < len(actions) {
		candidate, err := folded.Apply(actions[i])
		if err != nil {
			break
		}
		if !candidate.IsSerializable() {
			break
		}
		folded = candidate
		i++
	}

	tail := append([]ProofAction(nil), actions[i:]...)
	payload := rootProofSignedPayload(folded, tail)

	sig, err := sign(payload)
	if err != nil {
		return nil, err
	}
	author, err := Recover(payload, sig)
	if err != nil {
		return nil, SoftErrorf("arcadeum: root proof signature recovery failed: %v", err)
	}

	return &RootProof{state: folded, actions: tail, author: author, sig: sig}, nil
}

func rootProofSignedPayload(state *ProofState, actions []ProofAction) []byte {
	w := wire.NewWriter()
	w.PutBlob(state.Serialize())
	w.PutUint32(uint32(len(actions)))
	for _, a := range actions {
		w.PutBlob(a.Serialize())
	}
	return w.Bytes()
}

// Serialize encodes the root proof per the wire format:
//
//	u32 state_size ‖ state_bytes ‖
//	u32 n_actions ‖ (u32 size ‖ action_bytes) × n_actions ‖
//	65-byte signature
func (r *RootProof) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBlob(r.state.Serialize())
	w.PutUint32(uint32(len(r.actions)))
	for _, a := range r.actions {
		w.PutBlob(a.Serialize())
	}
	w.PutBytes(r.sig[:])
	return w.Bytes()
}

// DeserializeRootProof decodes a RootProof, recomputing Author from the
// trailing signature and rejecting any proof whose action tail could still
// be folded further -- the tail must be genuinely irreducible.
func DeserializeRootProof(data []byte, codec *Codec, expectedVersion []byte) (*RootProof, error) {
	if len(data) < 65 {
		return nil, SoftError(wire.ErrTruncated)
	}
	body, sigBytes := data[:len(data)-65], data[len(data)-65:]

	r := wire.NewReader(body)
	stateBlob, err := r.Blob()
	if err != nil {
		return nil, SoftError(err)
	}
	state, err := DeserializeProofState(stateBlob, codec, true, expectedVersion)
	if err != nil {
		return nil, err
	}

	n, err := r.Uint32()
	if err != nil {
		return nil, SoftError(err)
	}
	actions := make([]ProofAction, n)
	for i := range actions {
		blob, err := r.Blob()
		if err != nil {
			return nil, SoftError(err)
		}
		actions[i], err = DecodeProofAction(blob, codec)
		if err != nil {
			return nil, err
		}
	}
	if r.Remaining() != 0 {
		return nil, SoftErrorf("arcadeum: %d trailing bytes in root proof body", r.Remaining())
	}

	var sig Signature
	copy(sig[:], sigBytes)

	if !state.IsSerializable() {
		return nil, SoftError(ErrNotSerializable)
	}
	if err := verifyIrreducibleTail(state, actions); err != nil {
		return nil, err
	}

	author, err := Recover(body, sig)
	if err != nil {
		return nil, SoftErrorf("arcadeum: root proof signature recovery failed: %v", err)
	}

	return &RootProof{state: state, actions: actions, author: author, sig: sig}, nil
}

// verifyIrreducibleTail checks that the first action of the tail cannot be
// folded into state with a serializable result, the point at which
// NewRootProof's greedy fold stops. Only actions[0] is tried; longer
// prefixes of the tail are not examined.
func verifyIrreducibleTail(state *ProofState, actions []ProofAction) error {
	if len(actions) == 0 {
		return nil
	}
	candidate, err := state.Apply(actions[0])
	if err != nil {
		return nil // genuinely not foldable: the first action doesn't even apply
	}
	if candidate.IsSerializable() {
		return SoftError(ErrFoldableTail)
	}
	return nil
}

// Hash returns the Keccak-256 digest of the root proof's serialized form,
// the identity used to anchor a Proof's transcript to its genesis.
func (r *RootProof) Hash() Hash {
	return crypto.Keccak256Hash(r.Serialize())
}
