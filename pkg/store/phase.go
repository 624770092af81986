// Package store wraps pkg/arcadeum's signed transcript with support for
// domain transitions that must suspend mid-flight: a commit-reveal
// exchange to source unpredictable randomness, or a reveal exchange to
// unlock a player's hidden data. Both are modeled as an explicit
// continuation rather than a goroutine, per the hand-rolled state machine
// option: Apply either finishes outright or returns a pending Request plus
// a Resume function to call once that request is satisfied.
package store

import "github.com/horizon-games/arcadeum/pkg/arcadeum"

// Phase identifies what, if anything, a StoreState is suspended waiting
// for.
type Phase int

const (
	// Idle means no transition is in progress.
	Idle Phase = iota
	// RandomCommit is waiting for the owner or player 0 to supply a
	// commitment hash.
	RandomCommit
	// RandomReply is waiting for the owner or player 1 to supply a reply
	// value, which is XORed with the later reveal to form the seed.
	RandomReply
	// RandomReveal is waiting for a value hashing to the earlier
	// commitment.
	RandomReveal
	// Reveal is waiting for secret bytes satisfying a verifier, disclosed by
	// the requested player when the request names one.
	Reveal
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case RandomCommit:
		return "random-commit"
	case RandomReply:
		return "random-reply"
	case RandomReveal:
		return "random-reveal"
	case Reveal:
		return "reveal"
	default:
		return "unknown"
	}
}

// RequestKind identifies what a domain transition suspended on.
type RequestKind int

const (
	// RequestRandom asks the Store to run a commit-reveal exchange and
	// return a freshly seeded deterministic RNG.
	RequestRandom RequestKind = iota
	// RequestReveal asks the Store to obtain secret bytes satisfying Verify
	// (from Player, when set), then hand them to the domain's Continuation.
	RequestReveal
)

// Request describes a single outstanding suspension.
type Request struct {
	Kind RequestKind

	// Unique marks a request as the reveal_unique variant. The Store does
	// not read it: requests with and without Unique are handled the same way.
	Unique bool

	// Player and Verify are used by RequestReveal: Player is nil when the
	// revealer may be either player (owner-arbitrated), Verify reports
	// whether the revealed bytes are acceptable.
	Player *arcadeum.Player
	Verify func([]byte) bool
}

// Continuation resumes a suspended transition once its Request has been
// satisfied: input is the XorShift seed bytes for RequestRandom, or the
// verified secret bytes for RequestReveal. It returns either a finished
// domain state (next Request nil), or another suspension together with the
// Continuation that resumes it -- a domain may chain ctx.Random() straight
// into ctx.Reveal() within the same logical transition.
type Continuation func(ctx *Ctx, input []byte) (arcadeum.State, *Request, Continuation, error)

// Suspendable is implemented by a domain State that can suspend mid-Apply.
// Begin either completes synchronously (Request == nil) or returns a
// pending Request together with the Continuation that resumes it.
type Suspendable interface {
	arcadeum.State
	Begin(ctx *Ctx, player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, *Request, Continuation, error)
}

// Event is a single log entry emitted via Ctx.Log: Target is nil for an
// event visible to both players, or set for one visible to a single player
// (e.g. revealing what they privately drew).
type Event struct {
	Target *arcadeum.Player
	Data   []byte
}

// Ctx is threaded through Begin and every Continuation, giving the domain
// controlled access to per-player secret storage and event logging without
// exposing the Store's internals.
type Ctx struct {
	secrets [2][]byte
	events  []Event
}

// Secret returns the stored secret bytes for player, or nil if unset.
func (c *Ctx) Secret(player arcadeum.Player) []byte { return c.secrets[player] }

// SetSecret replaces the stored secret bytes for player.
func (c *Ctx) SetSecret(player arcadeum.Player, value []byte) { c.secrets[player] = value }

// Log appends an event, visible to target (or both players if nil).
func (c *Ctx) Log(target *arcadeum.Player, event []byte) {
	c.events = append(c.events, Event{Target: target, Data: event})
}
