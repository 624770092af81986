package arcadeum_test

import (
	"errors"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// counterState is a minimal arcadeum.State used only to exercise the
// protocol layer: either player may bump the counter by some amount,
// capped so it can model "still foldable" vs "done" transitions.
type counterState struct {
	N int
}

var counterVersion = []byte("counter/v1")

func (s *counterState) Version() []byte   { return counterVersion }
func (s *counterState) IsSerializable() bool { return true }
func (s *counterState) Serialize() []byte {
	w := wire.NewWriter()
	w.PutUint32(uint32(s.N))
	return w.Bytes()
}
func (s *counterState) Apply(player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, error) {
	inc, ok := action.(incrementAction)
	if !ok {
		return nil, arcadeum.SoftErrorf("counter: unrecognized action %T", action)
	}
	return &counterState{N: s.N + inc.By}, nil
}

func decodeCounterState(data []byte) (arcadeum.State, error) {
	r := wire.NewReader(data)
	n, err := r.Uint32()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	return &counterState{N: int(n)}, nil
}

type incrementAction struct {
	By int
}

func (a incrementAction) Serialize() []byte {
	w := wire.NewWriter()
	w.PutUint32(uint32(a.By))
	return w.Bytes()
}

func decodeIncrementAction(data []byte) (arcadeum.Action, error) {
	r := wire.NewReader(data)
	by, err := r.Uint32()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	return incrementAction{By: int(by)}, nil
}

func testCodec() *arcadeum.Codec {
	return &arcadeum.Codec{
		DecodeState:  decodeCounterState,
		DecodeAction: decodeIncrementAction,
		DecodeNonce:  arcadeum.DecodeUint64Nonce,
		DecodeID:     arcadeum.DecodeRawID,
	}
}

type identity struct {
	secret  []byte
	address arcadeum.Address
}

func newIdentity(t *testing.T) identity {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return identity{
		secret:  ethcrypto.FromECDSA(key),
		address: arcadeum.AddressOf(ethcrypto.FromECDSAPub(&key.PublicKey)),
	}
}

func (id identity) sign(message []byte) (arcadeum.Signature, error) {
	return arcadeum.Sign(message, id.secret)
}

func genesis(t *testing.T) (owner, p0, p1 identity, root *arcadeum.RootProof) {
	t.Helper()
	owner = newIdentity(t)
	p0 = newIdentity(t)
	p1 = newIdentity(t)
	state := arcadeum.NewProofState(arcadeum.RawID("game"), arcadeum.Uint64Nonce(0), [2]arcadeum.Address{p0.address, p1.address}, &counterState{})
	var err error
	root, err = arcadeum.NewRootProof(state, nil, owner.sign)
	if err != nil {
		t.Fatalf("NewRootProof: %v", err)
	}
	return
}

func TestProofActionSerializeRoundTrip(t *testing.T) {
	codec := testCodec()
	p := arcadeum.Player(1)

	play := arcadeum.NewPlay(&p, incrementAction{By: 3})
	got, err := arcadeum.DecodeProofAction(play.Serialize(), codec)
	if err != nil {
		t.Fatalf("decode play: %v", err)
	}
	if !got.IsPlay() || got.Game.(incrementAction).By != 3 || *got.Player != 1 {
		t.Fatalf("play round trip mismatch: %+v", got)
	}

	owner := newIdentity(t)
	subkey := newIdentity(t)
	sig, err := arcadeum.Sign([]byte(arcadeum.ChallengeMessage(subkey.address)), subkey.secret)
	if err != nil {
		t.Fatalf("sign challenge: %v", err)
	}
	certify := arcadeum.NewCertify(arcadeum.Player(0), subkey.address, sig)
	got, err = arcadeum.DecodeProofAction(certify.Serialize(), codec)
	if err != nil {
		t.Fatalf("decode certify: %v", err)
	}
	if !got.IsCertify() || got.CertifyPlayer != 0 || got.CertifySubkey != subkey.address {
		t.Fatalf("certify round trip mismatch: %+v", got)
	}

	approveSig, err := arcadeum.Sign([]byte(arcadeum.ApprovalMessage(owner.address, subkey.address)), owner.secret)
	if err != nil {
		t.Fatalf("sign approval: %v", err)
	}
	approve := arcadeum.NewApprove(owner.address, subkey.address, approveSig)
	got, err = arcadeum.DecodeProofAction(approve.Serialize(), codec)
	if err != nil {
		t.Fatalf("decode approve: %v", err)
	}
	if !got.IsApprove() || got.ApprovePlayerAddr != owner.address || got.ApproveSubkey != subkey.address {
		t.Fatalf("approve round trip mismatch: %+v", got)
	}
}

func TestRootProofSerializeRoundTrip(t *testing.T) {
	_, _, _, root := genesis(t)
	data := root.Serialize()
	got, err := arcadeum.DeserializeRootProof(data, testCodec(), counterVersion)
	if err != nil {
		t.Fatalf("DeserializeRootProof: %v", err)
	}
	if got.Author() != root.Author() {
		t.Fatalf("author mismatch after round trip")
	}
	if got.Hash() != root.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
}

func TestRootProofFoldsSerializableActions(t *testing.T) {
	owner, p0, p1, _ := genesis(t)
	state := arcadeum.NewProofState(arcadeum.RawID("game"), arcadeum.Uint64Nonce(0), [2]arcadeum.Address{p0.address, p1.address}, &counterState{})

	p0idx := arcadeum.Player(0)
	actions := []arcadeum.ProofAction{
		arcadeum.NewPlay(&p0idx, incrementAction{By: 1}),
		arcadeum.NewPlay(&p0idx, incrementAction{By: 2}),
	}
	root, err := arcadeum.NewRootProof(state, actions, owner.sign)
	if err != nil {
		t.Fatalf("NewRootProof: %v", err)
	}
	// counterState is always serializable, so every action should fold into
	// the genesis state, leaving no irreducible tail.
	if len(root.Actions()) != 0 {
		t.Fatalf("expected all actions to fold, %d left in the tail", len(root.Actions()))
	}
	if root.State().Domain().(*counterState).N != 3 {
		t.Fatalf("expected folded counter value 3, got %d", root.State().Domain().(*counterState).N)
	}
}

func TestProofApplyPlayerAuthoredUpdatesOwnSlotOnly(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}

	idx0 := arcadeum.Player(0)
	diff, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 5})}, p0.sign)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff.Author() != p0.address {
		t.Fatalf("expected diff author to be player 0")
	}
	if proof.Latest().Domain().(*counterState).N != 5 {
		t.Fatalf("expected counter 5, got %d", proof.Latest().Domain().(*counterState).N)
	}

	// A second, independent view applying the same diff must agree.
	other, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	if err := other.Apply(diff); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if other.Hash() != proof.Hash() {
		t.Fatalf("hashes disagree after applying the same diff")
	}
}

func TestProofOwnerAuthoredCompacts(t *testing.T) {
	owner, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}

	idx0 := arcadeum.Player(0)
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 1})}, p0.sign); err != nil {
		t.Fatalf("player diff: %v", err)
	}
	if len(proof.Actions()) == 0 {
		t.Fatalf("expected the player's diff to leave an action pending the owner's checkpoint")
	}

	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(nil, incrementAction{By: 1})}, owner.sign); err != nil {
		t.Fatalf("owner diff: %v", err)
	}
	// counterState is always serializable, so the owner's diff folds
	// everything into a fresh checkpoint, leaving no pending actions.
	if len(proof.Actions()) != 0 {
		t.Fatalf("expected the owner's diff to compact fully, got %d actions left", len(proof.Actions()))
	}
}

func TestProofSerializeRoundTrip(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	idx0 := arcadeum.Player(0)
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 9})}, p0.sign); err != nil {
		t.Fatalf("Diff: %v", err)
	}

	data := proof.Serialize()
	got, err := arcadeum.DeserializeProof(data, testCodec(), proof.Owner(), counterVersion)
	if err != nil {
		t.Fatalf("DeserializeProof: %v", err)
	}
	if got.Hash() != proof.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	if got.Latest().Domain().(*counterState).N != 9 {
		t.Fatalf("expected counter 9 after round trip, got %d", got.Latest().Domain().(*counterState).N)
	}
}

func TestProofApplyRejectsStaleHash(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	idx0 := arcadeum.Player(0)
	diff, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 1})}, p0.sign)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	// Applying the same diff twice targets a now-stale hash.
	if err := proof.Apply(diff); !errors.Is(err, arcadeum.ErrProofHashMismatch) {
		t.Fatalf("expected ErrProofHashMismatch, got %v", err)
	}
}

func TestProofPlayerMismatchIsHardFault(t *testing.T) {
	_, p0, p1, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	idx0 := arcadeum.Player(0)
	// p1 signs a diff whose action claims to be played by player 0.
	_, err = proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 1})}, p1.sign)
	if err == nil {
		t.Fatalf("expected a player-mismatch error")
	}
	culprit, isHard := arcadeum.IsHard(err)
	if !isHard {
		t.Fatalf("expected a Hard fault, got %v", err)
	}
	if culprit != p1.address {
		t.Fatalf("expected the fault attributed to player 1, got %s", arcadeum.EIP55(culprit))
	}
}

func TestUnknownSignerRejected(t *testing.T) {
	_, _, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	stranger := newIdentity(t)
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(nil, incrementAction{By: 1})}, stranger.sign); err == nil {
		t.Fatalf("expected a stranger's diff to be rejected")
	}
}

func TestCertifyThenPlayAsSubkey(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}

	subkey := newIdentity(t)
	// p0 signs the challenge message with their own key: Certify delegates
	// signing authority to subkey by having the delegating player's key
	// (not the subkey's own) sign over it.
	challengeSig, err := arcadeum.Sign([]byte(arcadeum.ChallengeMessage(subkey.address)), p0.secret)
	if err != nil {
		t.Fatalf("sign challenge: %v", err)
	}
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewCertify(arcadeum.Player(0), subkey.address, challengeSig)}, p0.sign); err != nil {
		t.Fatalf("certify diff: %v", err)
	}

	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(nil, incrementAction{By: 1})}, subkey.sign); err != nil {
		t.Fatalf("play as subkey: %v", err)
	}
	if proof.Latest().Domain().(*counterState).N != 1 {
		t.Fatalf("expected the subkey's play to land, got %+v", proof.Latest().Domain())
	}
}

func TestDuplicateCertifyRejected(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	subkey := newIdentity(t)
	sig, err := arcadeum.Sign([]byte(arcadeum.ChallengeMessage(subkey.address)), p0.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewCertify(arcadeum.Player(0), subkey.address, sig)}, p0.sign); err != nil {
		t.Fatalf("first certify: %v", err)
	}
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewCertify(arcadeum.Player(0), subkey.address, sig)}, p0.sign); !errors.Is(err, arcadeum.ErrDuplicateApproval) {
		t.Fatalf("expected ErrDuplicateApproval, got %v", err)
	}
}

func TestApproveMustComeFromOwner(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	subkey := newIdentity(t)
	sig, err := arcadeum.Sign([]byte(arcadeum.ApprovalMessage(p0.address, subkey.address)), p0.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// p0 signs the diff itself too, but Approve actions must be owner-authored.
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewApprove(p0.address, subkey.address, sig)}, p0.sign); err == nil {
		t.Fatalf("expected a non-owner Approve diff to be rejected")
	}
}

func TestDiffSerializeRoundTrip(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	idx0 := arcadeum.Player(0)
	diff, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewPlay(&idx0, incrementAction{By: 4})}, p0.sign)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	got, err := arcadeum.DeserializeDiff(diff.Serialize(), testCodec())
	if err != nil {
		t.Fatalf("DeserializeDiff: %v", err)
	}
	if got.Author() != diff.Author() || got.ProofHash != diff.ProofHash {
		t.Fatalf("diff round trip mismatch")
	}
}

func TestVersionMismatchRejected(t *testing.T) {
	_, _, _, root := genesis(t)
	_, err := arcadeum.DeserializeRootProof(root.Serialize(), testCodec(), []byte("wrong-version"))
	if !errors.Is(err, arcadeum.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestCertifyWrongClaimedPlayerRejected(t *testing.T) {
	_, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	subkey := newIdentity(t)
	// p0 signs the challenge, but the action claims to certify for player 1.
	sig, err := arcadeum.Sign([]byte(arcadeum.ChallengeMessage(subkey.address)), p0.secret)
	if err != nil {
		t.Fatalf("sign challenge: %v", err)
	}
	_, err = proof.Diff([]arcadeum.ProofAction{arcadeum.NewCertify(arcadeum.Player(1), subkey.address, sig)}, p0.sign)
	if err == nil {
		t.Fatalf("expected a certify action claiming the wrong player to be rejected")
	}
}

func TestApprovedSubkeyCannotAlsoCertify(t *testing.T) {
	owner, p0, _, root := genesis(t)
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		t.Fatalf("NewProofFromRootProof: %v", err)
	}
	subkey := newIdentity(t)

	approveSig, err := arcadeum.Sign([]byte(arcadeum.ApprovalMessage(p0.address, subkey.address)), owner.secret)
	if err != nil {
		t.Fatalf("sign approval: %v", err)
	}
	if _, err := proof.Diff([]arcadeum.ProofAction{arcadeum.NewApprove(p0.address, subkey.address, approveSig)}, owner.sign); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// The same subkey now tries to self-certify for the same player; it is
	// already known via approval, so certification must be rejected.
	challengeSig, err := arcadeum.Sign([]byte(arcadeum.ChallengeMessage(subkey.address)), p0.secret)
	if err != nil {
		t.Fatalf("sign challenge: %v", err)
	}
	_, err = proof.Diff([]arcadeum.ProofAction{arcadeum.NewCertify(arcadeum.Player(0), subkey.address, challengeSig)}, p0.sign)
	if !errors.Is(err, arcadeum.ErrDuplicateApproval) {
		t.Fatalf("expected ErrDuplicateApproval, got %v", err)
	}
}
