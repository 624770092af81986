package arcadeum

import (
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// Diff is a signed delta: a batch of new actions an owner or player wants
// folded into a specific Proof, identified by that Proof's current hash.
type Diff struct {
	ProofHash Hash
	Actions   []ProofAction
	Signature Signature

	author Address
}

// Author returns the address recovered from the diff's signature.
func (d *Diff) Author() Address { return d.author }

// diffPayload is the exact byte string the diff's author signs: the target
// proof's hash followed by the new actions. Recovering the signer against
// this same payload is how both NewDiff and DeserializeDiff establish
// Author.
func diffPayload(proofHash Hash, actions []ProofAction) []byte {
	w := wire.NewWriter()
	w.PutBytes(proofHash.Bytes())
	w.PutUint32(uint32(len(actions)))
	for _, a := range actions {
		w.PutBlob(a.Serialize())
	}
	return w.Bytes()
}

// NewDiff signs actions against proofHash with sign, called exactly once.
func NewDiff(proofHash Hash, actions []ProofAction, sign func([]byte) (Signature, error)) (*Diff, error) {
	payload := diffPayload(proofHash, actions)
	sig, err := sign(payload)
	if err != nil {
		return nil, err
	}
	author, err := Recover(payload, sig)
	if err != nil {
		return nil, SoftErrorf("arcadeum: diff signature recovery failed: %v", err)
	}
	return &Diff{ProofHash: proofHash, Actions: actions, Signature: sig, author: author}, nil
}

// Serialize encodes the diff as:
//
//	32-byte proof_hash ‖ u32 n ‖ (u32 size ‖ action_bytes) × n ‖ 65-byte signature
func (d *Diff) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBytes(d.ProofHash.Bytes())
	w.PutUint32(uint32(len(d.Actions)))
	for _, a := range d.Actions {
		w.PutBlob(a.Serialize())
	}
	w.PutBytes(d.Signature[:])
	return w.Bytes()
}

// DeserializeDiff decodes a Diff and recovers its Author from everything
// preceding the trailing signature.
func DeserializeDiff(data []byte, codec *Codec) (*Diff, error) {
	if len(data) < crypto.HashLength+4+65 {
		return nil, SoftError(wire.ErrTruncated)
	}
	body, sigBytes := data[:len(data)-65], data[len(data)-65:]

	r := wire.NewReader(body)
	hashBytes, err := r.Bytes(crypto.HashLength)
	if err != nil {
		return nil, SoftError(err)
	}
	var proofHash Hash
	copy(proofHash[:], hashBytes)

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
		return nil, SoftErrorf("arcadeum: %d trailing bytes in diff body", r.Remaining())
	}

	var sig Signature
	copy(sig[:], sigBytes)

	author, err := Recover(body, sig)
	if err != nil {
		return nil, SoftErrorf("arcadeum: diff signature recovery failed: %v", err)
	}

	return &Diff{ProofHash: proofHash, Actions: actions, Signature: sig, author: author}, nil
}
