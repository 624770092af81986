package arcadeum

import (
	"bytes"
	"sort"

	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// certification is a player's certification of a subkey: a player's key
// signed ChallengeMessage(subkey), so that signature recovers to one of the
// two player addresses.
type certification struct {
	subkey    Address
	signature Signature
}

// approval is a subkey delegated by the owner on behalf of a specific
// player address.
type approval struct {
	subkey     Address
	playerAddr Address
	signature  Signature
}

// ProofState is the signed, append-only-verified state of a two-player
// game: an identity, a monotonic nonce, the two player addresses, the
// accumulated subkey certifications and approvals, and the domain's own
// State.
type ProofState struct {
	id      ID
	nonce   Nonce
	players [2]Address

	certifications []certification // sorted ascending by subkey
	approvals      []approval      // sorted ascending by subkey

	domain State
}

// NewProofState constructs the genesis ProofState for a game.
func NewProofState(id ID, nonce Nonce, players [2]Address, domain State) *ProofState {
	return &ProofState{id: id, nonce: nonce, players: players, domain: domain}
}

// ID returns the game identifier.
func (s *ProofState) ID() ID { return s.id }

// Nonce returns the current nonce.
func (s *ProofState) Nonce() Nonce { return s.nonce }

// Players returns the two player addresses.
func (s *ProofState) Players() [2]Address { return s.players }

// Domain returns the wrapped domain state.
func (s *ProofState) Domain() State { return s.domain }

// Clone returns a shallow copy of s with independent certification/approval
// slices, suitable as the base for Apply.
func (s *ProofState) Clone() *ProofState {
	out := &ProofState{
		id:      s.id,
		nonce:   s.nonce,
		players: s.players,
		domain:  s.domain,
	}
	out.certifications = append(out.certifications, s.certifications...)
	out.approvals = append(out.approvals, s.approvals...)
	return out
}

// Player resolves address to a player index, trying in order: a direct
// match against the players array, a recognised self-certification, and an
// owner-approved subkey.
func (s *ProofState) Player(address Address) (Player, bool) {
	if address == s.players[0] {
		return 0, true
	}
	if address == s.players[1] {
		return 1, true
	}
	for _, c := range s.certifications {
		if c.subkey != address {
			continue
		}
		signer, err := Recover([]byte(ChallengeMessage(c.subkey)), c.signature)
		if err != nil {
			continue
		}
		if signer == s.players[0] {
			return 0, true
		}
		if signer == s.players[1] {
			return 1, true
		}
	}
	for _, a := range s.approvals {
		if a.subkey != address {
			continue
		}
		if a.playerAddr == s.players[0] {
			return 0, true
		}
		if a.playerAddr == s.players[1] {
			return 1, true
		}
	}
	return 0, false
}

// hasSubkey reports whether address is already known to s as either a
// certification or an approval. Certify and Approve share one namespace: a
// subkey may be registered at most once, by whichever method reaches it
// first.
func (s *ProofState) hasSubkey(address Address) bool {
	for _, c := range s.certifications {
		if c.subkey == address {
			return true
		}
	}
	for _, a := range s.approvals {
		if a.subkey == address {
			return true
		}
	}
	return false
}

// IsSerializable reports whether the signature/approval tables (bounded by
// u32) and the domain state can all be safely serialized right now.
func (s *ProofState) IsSerializable() bool {
	if len(s.certifications) > int(^uint32(0)) || len(s.approvals) > int(^uint32(0)) {
		return false
	}
	return s.domain.IsSerializable()
}

// Apply validates and executes action against s, returning the resulting
// ProofState. On success the nonce advances.
func (s *ProofState) Apply(action ProofAction) (*ProofState, error) {
	next := s.Clone()

	switch {
	case action.IsPlay():
		if action.Player != nil && *action.Player > 1 {
			return nil, SoftErrorf("arcadeum: play action names player %d, must be 0 or 1", *action.Player)
		}
		domain, err := s.domain.Apply(action.Player, action.Game)
		if err != nil {
			return nil, err
		}
		next.domain = domain

	case action.IsCertify():
		if action.CertifyPlayer > 1 {
			return nil, SoftErrorf("arcadeum: certify action names player %d, must be 0 or 1", action.CertifyPlayer)
		}
		signer, err := Recover([]byte(ChallengeMessage(action.CertifySubkey)), action.CertifySignature)
		if err != nil {
			return nil, SoftErrorf("arcadeum: certify signature recovery failed: %v", err)
		}
		if signer != s.players[action.CertifyPlayer] {
			return nil, SoftErrorf("arcadeum: certify signature does not recover to the claimed player's address")
		}
		if next.hasSubkey(action.CertifySubkey) {
			return nil, SoftError(ErrDuplicateApproval)
		}
		idx := sort.Search(len(next.certifications), func(i int) bool {
			return !next.certifications[i].subkey.Less(action.CertifySubkey)
		})
		c := certification{subkey: action.CertifySubkey, signature: action.CertifySignature}
		next.certifications = append(next.certifications, certification{})
		copy(next.certifications[idx+1:], next.certifications[idx:])
		next.certifications[idx] = c

	case action.IsApprove():
		if next.hasSubkey(action.ApproveSubkey) {
			return nil, SoftError(ErrDuplicateApproval)
		}
		idx := sort.Search(len(next.approvals), func(i int) bool {
			return !next.approvals[i].subkey.Less(action.ApproveSubkey)
		})
		a := approval{subkey: action.ApproveSubkey, playerAddr: action.ApprovePlayerAddr, signature: action.ApproveSignature}
		next.approvals = append(next.approvals, approval{})
		copy(next.approvals[idx+1:], next.approvals[idx:])
		next.approvals[idx] = a

	default:
		return nil, SoftErrorf("arcadeum: unrecognized proof action")
	}

	next.nonce = s.nonce.Next()
	return next, nil
}

// Serialize encodes the state per the wire format: version-tagged domain
// state header, ID, nonce, players, sorted certifications, sorted
// approvals, then the domain state bytes.
//
//	u32 version_size ‖ version ‖ u32 id_size ‖ id_bytes ‖
//	u32 nonce_size ‖ nonce_bytes ‖ players[0] ‖ players[1] ‖
//	u32 n_cert ‖ (subkey ‖ signature) × n_cert ‖
//	u32 n_app  ‖ (subkey ‖ player_addr ‖ signature) × n_app ‖
//	domain_state_bytes
func (s *ProofState) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBlob(s.domain.Version())
	w.PutBlob(s.id.Serialize())
	w.PutBlob(s.nonce.Serialize())
	w.PutBytes(s.players[0].Bytes())
	w.PutBytes(s.players[1].Bytes())

	w.PutUint32(uint32(len(s.certifications)))
	for _, c := range s.certifications {
		w.PutBytes(c.subkey.Bytes())
		w.PutBytes(c.signature[:])
	}

	w.PutUint32(uint32(len(s.approvals)))
	for _, a := range s.approvals {
		w.PutBytes(a.subkey.Bytes())
		w.PutBytes(a.playerAddr.Bytes())
		w.PutBytes(a.signature[:])
	}

	w.PutBytes(s.domain.Serialize())
	return w.Bytes()
}

// DeserializeProofState decodes a ProofState. If checkVersion is true (the
// normal case), a version that differs from expectedVersion is rejected.
func DeserializeProofState(data []byte, codec *Codec, checkVersion bool, expectedVersion []byte) (*ProofState, error) {
	r := wire.NewReader(data)

	version, err := r.Blob()
	if err != nil {
		return nil, SoftError(err)
	}
	if checkVersion && !bytes.Equal(version, expectedVersion) {
		return nil, SoftError(ErrVersionMismatch)
	}

	idBytes, err := r.Blob()
	if err != nil {
		return nil, SoftError(err)
	}
	id, err := codec.DecodeID(idBytes)
	if err != nil {
		return nil, SoftError(err)
	}

	nonceBytes, err := r.Blob()
	if err != nil {
		return nil, SoftError(err)
	}
	nonce, err := codec.DecodeNonce(nonceBytes)
	if err != nil {
		return nil, SoftError(err)
	}

	p0, err := r.Bytes(crypto.AddressLength)
	if err != nil {
		return nil, SoftError(err)
	}
	p1, err := r.Bytes(crypto.AddressLength)
	if err != nil {
		return nil, SoftError(err)
	}
	var players [2]Address
	copy(players[0][:], p0)
	copy(players[1][:], p1)

	nCert, err := r.Uint32()
	if err != nil {
		return nil, SoftError(err)
	}
	certs := make([]certification, nCert)
	for i := range certs {
		subkey, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return nil, SoftError(err)
		}
		sig, err := r.Bytes(65)
		if err != nil {
			return nil, SoftError(err)
		}
		copy(certs[i].subkey[:], subkey)
		copy(certs[i].signature[:], sig)
		if i > 0 && !certs[i-1].subkey.Less(certs[i].subkey) {
			return nil, SoftErrorf("arcadeum: certifications not sorted ascending by subkey")
		}
	}

	nApp, err := r.Uint32()
	if err != nil {
		return nil, SoftError(err)
	}
	apps := make([]approval, nApp)
	for i := range apps {
		subkey, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return nil, SoftError(err)
		}
		playerAddr, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return nil, SoftError(err)
		}
		sig, err := r.Bytes(65)
		if err != nil {
			return nil, SoftError(err)
		}
		copy(apps[i].subkey[:], subkey)
		copy(apps[i].playerAddr[:], playerAddr)
		copy(apps[i].signature[:], sig)
		if i > 0 && !apps[i-1].subkey.Less(apps[i].subkey) {
			return nil, SoftErrorf("arcadeum: approvals not sorted ascending by subkey")
		}
	}

	domain, err := codec.DecodeState(r.Rest())
	if err != nil {
		return nil, SoftError(err)
	}

	return &ProofState{
		id:             id,
		nonce:          nonce,
		players:        players,
		certifications: certs,
		approvals:      apps,
		domain:         domain,
	}, nil
}
