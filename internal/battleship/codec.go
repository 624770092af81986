package battleship

import (
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/store"
)

// StoreVersion is the wire version tag for battleship wrapped in a
// store.State (store.State.Version() prefixes the domain State's own Version()).
var StoreVersion = store.NewState(New([2]crypto.Hash{})).Version()

// Codec assembles the arcadeum.Codec for battleship wrapped in a Store.
func Codec() *arcadeum.Codec {
	return store.NewCodec(
		func(data []byte) (store.Suspendable, error) {
			s, err := Decode(data)
			if err != nil {
				return nil, err
			}
			return s.(*State), nil
		},
		DecodeAction,
		arcadeum.DecodeUint64Nonce,
		arcadeum.DecodeRawID,
	)
}
