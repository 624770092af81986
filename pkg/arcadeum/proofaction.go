package arcadeum

import (
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// Tags identifying the variant of a ProofAction on the wire.
const (
	tagPlay    byte = 0
	tagCertify byte = 1
	tagApprove byte = 2
)

// ProofAction is a single transcript entry. Exactly one of Play, Certify or
// Approve is set, matching Tag.
type ProofAction struct {
	// Player is the claimed author of a Play action. Nil for an
	// owner-authored action (the domain decides whether that's allowed).
	Player *Player
	// Game carries the domain action payload for a Play entry.
	Game Action

	// Certify registers Subkey as a signing key for CertifyPlayer, by
	// having that player's own address sign ChallengeMessage(Subkey)
	// directly -- no owner involvement needed. The claimed player is part
	// of the action (not inferred): Apply rejects the action unless
	// Signature actually recovers to that exact player's address.
	CertifyPlayer    Player
	CertifySubkey    Address
	CertifySignature Signature

	// Approve registers Subkey as a signing key for PlayerAddr, authorized
	// by the owner's signature over ApprovalMessage(PlayerAddr, Subkey).
	ApprovePlayerAddr Address
	ApproveSubkey     Address
	ApproveSignature  Signature

	tag byte
}

// NewPlay constructs a Play action, player nil for an owner-authored move.
func NewPlay(player *Player, action Action) ProofAction {
	return ProofAction{tag: tagPlay, Player: player, Game: action}
}

// NewCertify constructs a Certify action: signature must be player's own
// signature over ChallengeMessage(subkey), and must recover to exactly
// player's address for the certification to later succeed in Apply.
func NewCertify(player Player, subkey Address, signature Signature) ProofAction {
	return ProofAction{tag: tagCertify, CertifyPlayer: player, CertifySubkey: subkey, CertifySignature: signature}
}

// NewApprove constructs an Approve action: signature must be the owner's
// signature over ApprovalMessage(playerAddr, subkey).
func NewApprove(playerAddr, subkey Address, signature Signature) ProofAction {
	return ProofAction{
		tag:               tagApprove,
		ApprovePlayerAddr: playerAddr,
		ApproveSubkey:     subkey,
		ApproveSignature:  signature,
	}
}

// IsPlay reports whether this is a Play action.
func (a ProofAction) IsPlay() bool { return a.tag == tagPlay }

// IsCertify reports whether this is a Certify action.
func (a ProofAction) IsCertify() bool { return a.tag == tagCertify }

// IsApprove reports whether this is an Approve action.
func (a ProofAction) IsApprove() bool { return a.tag == tagApprove }

// Serialize encodes the action as: u8 tag, then tag-specific payload.
//
//	Play:    tag(0) ‖ u8 has_player ‖ player? ‖ u32 size ‖ game_bytes
//	Certify: tag(1) ‖ u8 player ‖ 20-byte subkey ‖ 65-byte signature
//	Approve: tag(2) ‖ 20-byte player_addr ‖ 20-byte subkey ‖ 65-byte signature
func (a ProofAction) Serialize() []byte {
	w := wire.NewWriter()
	w.PutByte(a.tag)
	switch a.tag {
	case tagPlay:
		w.PutBool(a.Player != nil)
		if a.Player != nil {
			w.PutByte(byte(*a.Player))
		}
		w.PutBlob(a.Game.Serialize())
	case tagCertify:
		w.PutByte(byte(a.CertifyPlayer))
		w.PutBytes(a.CertifySubkey.Bytes())
		w.PutBytes(a.CertifySignature[:])
	case tagApprove:
		w.PutBytes(a.ApprovePlayerAddr.Bytes())
		w.PutBytes(a.ApproveSubkey.Bytes())
		w.PutBytes(a.ApproveSignature[:])
	}
	return w.Bytes()
}

// DecodeProofAction decodes a ProofAction, using codec to decode the
// embedded domain action of a Play entry.
func DecodeProofAction(data []byte, codec *Codec) (ProofAction, error) {
	r := wire.NewReader(data)
	tag, err := r.Byte()
	if err != nil {
		return ProofAction{}, SoftError(err)
	}
	switch tag {
	case tagPlay:
		hasPlayer, err := r.Bool()
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		var player *Player
		if hasPlayer {
			b, err := r.Byte()
			if err != nil {
				return ProofAction{}, SoftError(err)
			}
			p := Player(b)
			player = &p
		}
		blob, err := r.Blob()
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		game, err := codec.DecodeAction(blob)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		if r.Remaining() != 0 {
			return ProofAction{}, SoftErrorf("arcadeum: %d trailing bytes in play action", r.Remaining())
		}
		return NewPlay(player, game), nil
	case tagCertify:
		playerByte, err := r.Byte()
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		subkey, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		sig, err := r.Bytes(65)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		if r.Remaining() != 0 {
			return ProofAction{}, SoftErrorf("arcadeum: %d trailing bytes in certify action", r.Remaining())
		}
		var a Address
		copy(a[:], subkey)
		var s Signature
		copy(s[:], sig)
		return NewCertify(Player(playerByte), a, s), nil
	case tagApprove:
		playerAddr, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		subkey, err := r.Bytes(crypto.AddressLength)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		sig, err := r.Bytes(65)
		if err != nil {
			return ProofAction{}, SoftError(err)
		}
		if r.Remaining() != 0 {
			return ProofAction{}, SoftErrorf("arcadeum: %d trailing bytes in approve action", r.Remaining())
		}
		var pa, sk Address
		copy(pa[:], playerAddr)
		copy(sk[:], subkey)
		var s Signature
		copy(s[:], sig)
		return NewApprove(pa, sk, s), nil
	default:
		return ProofAction{}, SoftErrorf("arcadeum: unknown proof action tag %d", tag)
	}
}
