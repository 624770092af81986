package store

import (
	"bytes"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// pendingData tracks an in-flight suspension: the Request the domain is
// waiting on, the Continuation to resume it, and (for a random exchange)
// the commitment/reply values gathered so far.
type pendingData struct {
	request      *Request
	continuation Continuation

	hash      []byte // RandomCommit's hash
	ownerHash bool   // true if the owner (not player 0) supplied hash
	reply     []byte // RandomReply's value
}

// State wraps a domain Suspendable with commit-reveal / secret-reveal
// orchestration and per-player secret storage. It is the concrete
// arcadeum.State a game's ProofState actually wraps.
type State struct {
	inner   Suspendable
	phase   Phase
	pending *pendingData
	secrets [2][]byte
	events  []Event
}

// NewState wraps a fresh domain state with no pending transition.
func NewState(inner Suspendable) *State {
	return &State{inner: inner, phase: Idle}
}

// Inner returns the wrapped domain state.
func (s *State) Inner() Suspendable { return s.inner }

// Phase returns the current suspension phase.
func (s *State) Phase() Phase { return s.phase }

// Secret returns the stored secret for player, or nil.
func (s *State) Secret(player arcadeum.Player) []byte { return s.secrets[player] }

// Events returns and clears events accumulated since the last call.
func (s *State) Events() []Event {
	ev := s.events
	s.events = nil
	return ev
}

func (s *State) clone() *State {
	next := &State{
		inner:   s.inner,
		phase:   s.phase,
		pending: s.pending,
		secrets: s.secrets,
	}
	return next
}

func phaseForRequest(req *Request) Phase {
	if req.Kind == RequestRandom {
		return RandomCommit
	}
	return Reveal
}

// Version prefixes the inner domain's version so a deserializer can tell a
// bare domain state apart from one wrapped in a Store.
func (s *State) Version() []byte {
	w := wire.NewWriter()
	w.PutBlob([]byte("store/v1"))
	w.PutBlob(s.inner.Version())
	return w.Bytes()
}

// IsSerializable requires the domain state to be serializable AND no
// transition to be in flight: a suspended StoreState has no well-defined
// wire encoding for the pending request (verifiers are Go closures).
func (s *State) IsSerializable() bool {
	return s.phase == Idle && s.inner.IsSerializable()
}

// Serialize encodes: blob(secret0) ‖ blob(secret1) ‖ inner_state_bytes.
// Only valid when IsSerializable reports true.
func (s *State) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBlob(s.secrets[0])
	w.PutBlob(s.secrets[1])
	w.PutBytes(s.inner.Serialize())
	return w.Bytes()
}

// Apply drives the suspension state machine one step: either starting a
// new domain transition (phase Idle, a Play action) or supplying the next
// leg of a commit-reveal or secret-reveal exchange.
func (s *State) Apply(player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, error) {
	act, ok := action.(Action)
	if !ok {
		return nil, arcadeum.SoftErrorf("store: unrecognized action type %T", action)
	}

	switch s.phase {
	case Idle:
		if act.tag != tagPlay {
			return nil, arcadeum.SoftErrorf("store: %v action is not valid while idle", act.tag)
		}
		ctx := &Ctx{secrets: s.secrets}
		result, req, cont, err := s.inner.Begin(ctx, player, act.Game)
		if err != nil {
			return nil, err
		}
		next := s.clone()
		next.secrets = ctx.secrets
		next.events = append(next.events, ctx.events...)
		if req == nil {
			next.inner = result.(Suspendable)
			next.phase = Idle
			next.pending = nil
			return next, nil
		}
		next.phase = phaseForRequest(req)
		next.pending = &pendingData{request: req, continuation: cont}
		return next, nil

	case RandomCommit:
		if act.tag != tagRandomCommit {
			return nil, arcadeum.SoftErrorf("store: expected a random commitment")
		}
		if !(player == nil || *player == 0) {
			return nil, arcadeum.SoftErrorf("store: only the owner or player 0 may supply the commitment")
		}
		next := s.clone()
		p := *s.pending
		p.hash = append([]byte(nil), act.Bytes...)
		p.ownerHash = player == nil
		next.pending = &p
		next.phase = RandomReply
		return next, nil

	case RandomReply:
		if act.tag != tagRandomReply {
			return nil, arcadeum.SoftErrorf("store: expected a random reply")
		}
		if !(player == nil || *player == 1) {
			return nil, arcadeum.SoftErrorf("store: only the owner or player 1 may supply the reply")
		}
		next := s.clone()
		p := *s.pending
		p.reply = append([]byte(nil), act.Bytes...)
		next.pending = &p
		next.phase = RandomReveal
		return next, nil

	case RandomReveal:
		if act.tag != tagRandomReveal {
			return nil, arcadeum.SoftErrorf("store: expected a random reveal")
		}
		if s.pending.ownerHash {
			if player != nil {
				return nil, arcadeum.SoftErrorf("store: only the owner may reveal an owner-supplied commitment")
			}
		} else if !(player != nil && *player == 0) {
			return nil, arcadeum.SoftErrorf("store: only player 0 may reveal their own commitment")
		}
		if got := crypto.Keccak256(act.Bytes); !bytes.Equal(got, s.pending.hash) {
			return nil, arcadeum.SoftError(arcadeum.ErrAttributable)
		}
		seed := xorBytes(s.pending.reply, act.Bytes)
		return s.resume(seed)

	case Reveal:
		if act.tag != tagSecretReveal {
			return nil, arcadeum.SoftErrorf("store: expected a secret reveal")
		}
		req := s.pending.request
		if req.Player != nil && !(player != nil && *player == *req.Player) {
			return nil, arcadeum.SoftErrorf("store: reveal must come from the requested player")
		}
		if !req.Verify(act.Bytes) {
			return nil, arcadeum.SoftError(arcadeum.ErrAttributable)
		}
		return s.resume(act.Bytes)

	default:
		return nil, arcadeum.SoftErrorf("store: unknown phase %v", s.phase)
	}
}

// resume invokes the pending continuation with input and applies whatever
// it returns: completion, or another suspension.
func (s *State) resume(input []byte) (arcadeum.State, error) {
	ctx := &Ctx{secrets: s.secrets}
	result, req, cont, err := s.pending.continuation(ctx, input)
	if err != nil {
		return nil, err
	}
	next := s.clone()
	next.secrets = ctx.secrets
	next.events = append(next.events, ctx.events...)
	if req == nil {
		next.inner = result.(Suspendable)
		next.phase = Idle
		next.pending = nil
		return next, nil
	}
	next.phase = phaseForRequest(req)
	next.pending = &pendingData{request: req, continuation: cont}
	return next, nil
}

func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		out[i] = x ^ y
	}
	return out
}
