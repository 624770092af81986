// Package tester provides a small in-process harness for exercising a game
// end to end: an owner and two players, each holding their own private key
// and their own view of the Store, with helpers to exchange diffs and
// assert every view agrees.
package tester

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/store"
)

// Identity is a single participant's signing key and derived address.
type Identity struct {
	Key     *ecdsa.PrivateKey
	Address arcadeum.Address
}

// NewIdentity generates a fresh secp256k1 keypair.
func NewIdentity() (*Identity, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("tester: generate key: %w", err)
	}
	return &Identity{Key: key, Address: arcadeum.AddressOf(ethcrypto.FromECDSAPub(&key.PublicKey))}, nil
}

// Sign signs message with this identity's key.
func (id *Identity) Sign(message []byte) (arcadeum.Signature, error) {
	return arcadeum.SignWithKey(message, id.Key)
}

// Harness wires together an owner and two players, each with their own
// Store instance over the same genesis, and a running log of every diff
// exchanged so tests can replay or inspect the transcript.
type Harness struct {
	Owner   *Identity
	Players [2]*Identity

	OwnerStore   *store.Store
	PlayerStores [2]*store.Store

	Diffs []*arcadeum.Diff
}

// NewHarness creates identities for the owner and both players, builds the
// genesis RootProof, and opens a Store on it for each party.
func NewHarness(domain arcadeum.State, id arcadeum.ID, nonce arcadeum.Nonce, codec *arcadeum.Codec, version []byte) (*Harness, error) {
	owner, err := NewIdentity()
	if err != nil {
		return nil, err
	}
	var players [2]*Identity
	var addrs [2]arcadeum.Address
	for i := range players {
		players[i], err = NewIdentity()
		if err != nil {
			return nil, err
		}
		addrs[i] = players[i].Address
	}

	state := arcadeum.NewProofState(id, nonce, addrs, domain)
	root, err := arcadeum.NewRootProof(state, nil, owner.Sign)
	if err != nil {
		return nil, err
	}

	h := &Harness{Owner: owner, Players: players}
	if h.OwnerStore, err = store.New(root, codec, version, nil); err != nil {
		return nil, err
	}
	for i := range h.PlayerStores {
		if h.PlayerStores[i], err = store.New(root, codec, version, nil); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Broadcast submits a diff produced by one party's Store to every other
// party's Store, and records it in Diffs.
func (h *Harness) Broadcast(from *store.Store, diff *arcadeum.Diff) error {
	h.Diffs = append(h.Diffs, diff)
	stores := append([]*store.Store{h.OwnerStore}, h.PlayerStores[:]...)
	for _, s := range stores {
		if s == from {
			continue
		}
		if err := s.Apply(diff); err != nil {
			return err
		}
	}
	return nil
}

// PlayAsOwner signs and broadcasts actions authored by the owner.
func (h *Harness) PlayAsOwner(actions ...store.ProofActionBuilder) error {
	diff, err := h.OwnerStore.Diff(actions, h.Owner.Sign)
	if err != nil {
		return err
	}
	return h.Broadcast(h.OwnerStore, diff)
}

// PlayAsPlayer signs and broadcasts actions authored by player p (0 or 1).
func (h *Harness) PlayAsPlayer(p arcadeum.Player, actions ...store.ProofActionBuilder) error {
	s := h.PlayerStores[p]
	diff, err := s.Diff(actions, h.Players[p].Sign)
	if err != nil {
		return err
	}
	return h.Broadcast(s, diff)
}

// AssertConsensus reports an error if the owner's and both players' Proof
// hashes disagree, the simplest possible "everyone sees the same
// transcript" check to run after every exchange.
func (h *Harness) AssertConsensus() error {
	want := h.OwnerStore.Proof().Hash()
	for i, s := range h.PlayerStores {
		if got := s.Proof().Hash(); got != want {
			return fmt.Errorf("tester: player %d proof hash %x disagrees with owner's %x", i, got, want)
		}
	}
	return nil
}
