package store

import (
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// InnerCodec decodes a domain's bare (unwrapped) serialized state.
type InnerCodec func([]byte) (Suspendable, error)

// DeserializeState decodes a State previously produced by Serialize.
func DeserializeState(data []byte, decodeInner InnerCodec) (*State, error) {
	r := wire.NewReader(data)
	secret0, err := r.Blob()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	secret1, err := r.Blob()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	inner, err := decodeInner(r.Rest())
	if err != nil {
		return nil, err
	}
	s := NewState(inner)
	if len(secret0) > 0 {
		s.secrets[0] = secret0
	}
	if len(secret1) > 0 {
		s.secrets[1] = secret1
	}
	return s, nil
}

// NewCodec assembles an arcadeum.Codec for a game whose domain state is
// wrapped in a store.State: DecodeState strips the Store's own framing
// before handing the remainder to decodeInner.
func NewCodec(decodeInner InnerCodec, decodeGame ActionCodec, decodeNonce func([]byte) (arcadeum.Nonce, error), decodeID func([]byte) (arcadeum.ID, error)) *arcadeum.Codec {
	return &arcadeum.Codec{
		DecodeState: func(data []byte) (arcadeum.State, error) {
			return DeserializeState(data, decodeInner)
		},
		DecodeAction: func(data []byte) (arcadeum.Action, error) {
			return DecodeAction(data, decodeGame)
		},
		DecodeNonce: decodeNonce,
		DecodeID:    decodeID,
	}
}
