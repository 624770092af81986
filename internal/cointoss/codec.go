package cointoss

import (
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/store"
)

// StoreVersion is the wire version tag for cointoss wrapped in a
// store.State.
var StoreVersion = store.NewState(New()).Version()

// Codec assembles the arcadeum.Codec for cointoss wrapped in a Store.
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
