package arcadeum

import (
	"errors"
	"fmt"

	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// slot is one of a Proof's three checkpoint candidates: a signed claim that
// the actions in [start, end) fold from a serializable state at start.
type slot struct {
	present   bool
	start     uint32
	end       uint32
	signature Signature
}

// slotOwner, slotPlayer0 and slotPlayer1 index Proof.slots.
const (
	slotOwner = iota
	slotPlayer0
	slotPlayer1
)

// Proof is the rolling, signed transcript of a game in progress: a common
// checkpoint state every signer's claim is relative to, the actions played
// since that checkpoint, and up to three independent signed claims (one
// for the owner, one per player) about how far each of them has folded.
type Proof struct {
	owner Address

	base    *ProofState
	actions []ProofAction
	latest  *ProofState

	slots [3]slot
}

// NewProofFromRootProof seeds a Proof from a game's genesis commitment.
func NewProofFromRootProof(root *RootProof) (*Proof, error) {
	latest, err := replayAll(root.State(), root.Actions())
	if err != nil {
		return nil, err
	}
	p := &Proof{
		owner:   root.Author(),
		base:    root.State(),
		actions: append([]ProofAction(nil), root.Actions()...),
		latest:  latest,
	}
	p.slots[slotOwner] = slot{present: true, start: 0, end: uint32(len(p.actions)), signature: root.sig}
	return p, nil
}

// Owner returns the channel owner's address.
func (p *Proof) Owner() Address { return p.owner }

// Latest returns the most up-to-date state, which may not currently be
// serializable (a domain mid-animation, or mid commit-reveal).
func (p *Proof) Latest() *ProofState { return p.latest }

// Actions returns the full action log since the common-origin checkpoint.
func (p *Proof) Actions() []ProofAction { return p.actions }

func replayAll(base *ProofState, actions []ProofAction) (*ProofState, error) {
	cur := base
	for _, act := range actions {
		next, err := cur.Apply(act)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// foldFrom replays actions atop base, returning the index and state of the
// furthest point at which the result is serializable -- the farthest a
// checkpoint could legitimately be placed right now.
func foldFrom(base *ProofState, actions []ProofAction) (int, *ProofState, error) {
	cur := base
	best, bestState := 0, base
	for i, act := range actions {
		next, err := cur.Apply(act)
		if err != nil {
			return 0, nil, err
		}
		cur = next
		if cur.IsSerializable() {
			best, bestState = i+1, cur
		}
	}
	return best, bestState, nil
}

// Hash identifies the Proof's current transcript: its common checkpoint
// state plus the actions played since. A Diff targets a specific Hash, and
// is rejected by Apply if the Proof has since moved on.
func (p *Proof) Hash() Hash {
	return crypto.Keccak256Hash(diffPayload(crypto.Keccak256Hash(p.base.Serialize()), p.actions))
}

// Apply reconciles diff into the proof: it must target the proof's current
// Hash, its author must be the owner or a recognised player, and Approve
// actions may only come from the owner. A Play action that declares a player
// other than the one a player author resolves to is attributed as a Hard
// fault; Play actions with no declared player, and Play actions authored by
// the owner, are not checked against the author.
func (p *Proof) Apply(diff *Diff) error {
	if diff.ProofHash != p.Hash() {
		return SoftError(ErrProofHashMismatch)
	}

	isOwner := diff.author == p.owner
	player, isPlayer := p.latest.Player(diff.author)
	if !isOwner && !isPlayer {
		return SoftErrorf("arcadeum: diff author %s is neither the owner nor a known player", EIP55(diff.author))
	}

	return p.integrate(diff.author, isOwner, player, isPlayer, diff.Actions, diff.Signature)
}

// Diff produces a signed Diff folding actions into the proof, advancing the
// local view exactly as Apply would for a diff received back from a peer.
// sign is invoked exactly once.
func (p *Proof) Diff(actions []ProofAction, sign func([]byte) (Signature, error)) (*Diff, error) {
	proofHash := p.Hash()
	payload := diffPayload(proofHash, actions)

	sig, err := sign(payload)
	if err != nil {
		return nil, err
	}
	author, err := Recover(payload, sig)
	if err != nil {
		return nil, SoftErrorf("arcadeum: diff signature recovery failed: %v", err)
	}

	isOwner := author == p.owner
	player, isPlayer := p.latest.Player(author)
	if !isOwner && !isPlayer {
		return nil, SoftErrorf("arcadeum: signer %s is neither the owner nor a known player", EIP55(author))
	}

	if err := p.integrate(author, isOwner, player, isPlayer, actions, sig); err != nil {
		return nil, err
	}
	return &Diff{ProofHash: proofHash, Actions: actions, Signature: sig, author: author}, nil
}

func (p *Proof) integrate(author Address, isOwner bool, player Player, isPlayer bool, actions []ProofAction, sig Signature) error {
	cur := p.latest
	for _, act := range actions {
		if act.IsPlay() && act.Player != nil && isPlayer && *act.Player != player {
			return HardError(author, fmt.Errorf("play action claims player %d but signer resolves to player %d", *act.Player, player))
		}
		if act.IsApprove() && !isOwner {
			return SoftErrorf("arcadeum: approve action must be authored by the owner")
		}
		next, err := cur.Apply(act)
		if err != nil {
			if errors.Is(err, ErrAttributable) {
				var e *Error
				if !errors.As(err, &e) || e.Culprit == nil {
					err = HardError(author, err)
				}
			}
			return err
		}
		cur = next
	}

	allActions := append(append([]ProofAction(nil), p.actions...), actions...)
	foldIdx, foldState, err := foldFrom(p.base, allActions)
	if err != nil {
		return err
	}

	p.latest = cur
	if isOwner {
		p.base = foldState
		p.actions = append([]ProofAction(nil), allActions[foldIdx:]...)
		p.slots = [3]slot{}
		p.slots[slotOwner] = slot{present: true, start: 0, end: uint32(len(p.actions)), signature: sig}
		return nil
	}

	p.actions = allActions
	idx := slotPlayer0 + int(player)
	p.slots[idx] = slot{present: true, start: uint32(foldIdx), end: uint32(len(allActions)), signature: sig}
	return nil
}

// Serialize encodes the proof per the wire format:
//
//	u32 state_size ‖ base_state_bytes ‖
//	u32 n_actions ‖ (u32 size ‖ action_bytes) × n_actions ‖
//	for slot in [owner, player0, player1]:
//	    u8 present? ‖ (u32 start ‖ u32 end ‖ 65-byte signature)?
func (p *Proof) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBlob(p.base.Serialize())
	w.PutUint32(uint32(len(p.actions)))
	for _, a := range p.actions {
		w.PutBlob(a.Serialize())
	}
	for _, s := range p.slots {
		w.PutBool(s.present)
		if s.present {
			w.PutUint32(s.start)
			w.PutUint32(s.end)
			w.PutBytes(s.signature[:])
		}
	}
	return w.Bytes()
}

// DeserializeProof decodes a Proof and validates the structural invariants
// on the checkpoint slots: at least one slot starts at 0, every range lies
// within bounds with start <= end, the state at each slot's start is
// serializable, and every interior state in (start, end] is not (otherwise
// that interior point should itself have been the checkpoint).
func DeserializeProof(data []byte, codec *Codec, owner Address, expectedVersion []byte) (*Proof, error) {
	r := wire.NewReader(data)

	baseBlob, err := r.Blob()
	if err != nil {
		return nil, SoftError(err)
	}
	base, err := DeserializeProofState(baseBlob, codec, true, expectedVersion)
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

	var slots [3]slot
	haveOrigin := false
	intermediate := make([]*ProofState, n+1)
	intermediate[0] = base
	for i := 0; i < int(n); i++ {
		next, err := intermediate[i].Apply(actions[i])
		if err != nil {
			return nil, err
		}
		intermediate[i+1] = next
	}

	for i := range slots {
		present, err := r.Bool()
		if err != nil {
			return nil, SoftError(err)
		}
		if !present {
			continue
		}
		start, err := r.Uint32()
		if err != nil {
			return nil, SoftError(err)
		}
		end, err := r.Uint32()
		if err != nil {
			return nil, SoftError(err)
		}
		sigBytes, err := r.Bytes(65)
		if err != nil {
			return nil, SoftError(err)
		}
		if start > end || end > n {
			return nil, SoftError(ErrInvalidCheckpoints)
		}
		if start == 0 {
			haveOrigin = true
		}
		if !intermediate[start].IsSerializable() {
			return nil, SoftError(ErrInvalidCheckpoints)
		}
		for j := start + 1; j <= end; j++ {
			if intermediate[j].IsSerializable() {
				return nil, SoftError(ErrInvalidCheckpoints)
			}
		}
		var sig Signature
		copy(sig[:], sigBytes)
		slots[i] = slot{present: true, start: start, end: end, signature: sig}
	}
	if r.Remaining() != 0 {
		return nil, SoftErrorf("arcadeum: %d trailing bytes in proof", r.Remaining())
	}
	if !haveOrigin {
		return nil, SoftError(ErrInvalidCheckpoints)
	}

	return &Proof{
		owner:   owner,
		base:    base,
		actions: actions,
		latest:  intermediate[n],
		slots:   slots,
	}, nil
}
