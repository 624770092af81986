package store

import (
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

const (
	tagPlay          byte = 0
	tagRandomCommit  byte = 1
	tagRandomReply   byte = 2
	tagRandomReveal  byte = 3
	tagSecretReveal  byte = 4
)

// Action is a single entry in the store-level transcript: either a domain
// Play, or one leg of a commit-reveal / secret-reveal exchange.
type Action struct {
	Game  arcadeum.Action // set for tagPlay
	Bytes []byte          // commit hash / reply / reveal preimage / revealed secret

	tag byte
}

// NewPlayAction wraps a domain action for submission through the Store.
func NewPlayAction(action arcadeum.Action) Action { return Action{tag: tagPlay, Game: action} }

// NewRandomCommitAction supplies the commitment hash h.
func NewRandomCommitAction(h []byte) Action { return Action{tag: tagRandomCommit, Bytes: h} }

// NewRandomReplyAction supplies the reply value r.
func NewRandomReplyAction(r []byte) Action { return Action{tag: tagRandomReply, Bytes: r} }

// NewRandomRevealAction supplies the preimage s with Keccak256(s) == h.
func NewRandomRevealAction(s []byte) Action { return Action{tag: tagRandomReveal, Bytes: s} }

// NewSecretRevealAction supplies bytes satisfying a pending reveal request's
// Verify function.
func NewSecretRevealAction(b []byte) Action { return Action{tag: tagSecretReveal, Bytes: b} }

// Serialize encodes the action as: u8 tag ‖ payload, where the payload is
// blob(Game.Serialize()) for a Play and blob(Bytes) otherwise.
func (a Action) Serialize() []byte {
	w := wire.NewWriter()
	w.PutByte(a.tag)
	if a.tag == tagPlay {
		w.PutBlob(a.Game.Serialize())
	} else {
		w.PutBlob(a.Bytes)
	}
	return w.Bytes()
}

// ActionCodec decodes the domain-specific payload of a Play action.
type ActionCodec func([]byte) (arcadeum.Action, error)

// DecodeAction decodes an Action previously produced by Serialize.
func DecodeAction(data []byte, decodeGame ActionCodec) (Action, error) {
	r := wire.NewReader(data)
	tag, err := r.Byte()
	if err != nil {
		return Action{}, arcadeum.SoftError(err)
	}
	blob, err := r.Blob()
	if err != nil {
		return Action{}, arcadeum.SoftError(err)
	}
	if r.Remaining() != 0 {
		return Action{}, arcadeum.SoftErrorf("store: %d trailing bytes in store action", r.Remaining())
	}
	switch tag {
	case tagPlay:
		game, err := decodeGame(blob)
		if err != nil {
			return Action{}, err
		}
		return Action{tag: tag, Game: game}, nil
	case tagRandomCommit, tagRandomReply, tagRandomReveal, tagSecretReveal:
		return Action{tag: tag, Bytes: blob}, nil
	default:
		return Action{}, arcadeum.SoftErrorf("store: unknown store action tag %d", tag)
	}
}
