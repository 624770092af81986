// Package cointoss is a two-player game that settles on a single flip of a
// fair coin: each player secretly calls heads or tails, and once both have
// called, the game suspends on a commit-reveal exchange to source the flip
// itself, so neither side can bias (or even know) the outcome before it
// commits to the exchange. It exists to exercise pkg/store's RequestRandom
// suspension end to end.
package cointoss

import (
	"fmt"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/store"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// Version identifies this game's serialized wire format.
var Version = []byte("cointoss/v1")

// State tracks which players have called the flip (without recording what
// they called: that's kept as a per-player secret until the flip resolves)
// and, once resolved, the outcome and who (if anyone) guessed it.
type State struct {
	Guessed [2]bool
	Result  *byte            // nil until resolved; 0 heads, 1 tails
	Winner  *arcadeum.Player // nil until resolved, or forever on a push
}

// New returns a fresh game waiting on both players' calls.
func New() *State { return &State{} }

// GuessAction calls the flip: true for tails, false for heads.
type GuessAction struct {
	Tails bool
}

// Serialize encodes the action as a single byte.
func (a GuessAction) Serialize() []byte {
	if a.Tails {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeAction decodes a GuessAction.
func DecodeAction(data []byte) (arcadeum.Action, error) {
	if len(data) != 1 {
		return nil, arcadeum.SoftErrorf("cointoss: action must be 1 byte, got %d", len(data))
	}
	return GuessAction{Tails: data[0] != 0}, nil
}

// Version returns the game's wire format tag.
func (s *State) Version() []byte { return Version }

// IsSerializable is always true: the only hidden data is kept via the
// Store's secret storage, not in State itself.
func (s *State) IsSerializable() bool { return true }

// Serialize encodes: guessed[0] ‖ guessed[1] ‖ has_result ‖ result? ‖
// has_winner ‖ winner?.
func (s *State) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBool(s.Guessed[0])
	w.PutBool(s.Guessed[1])
	w.PutBool(s.Result != nil)
	if s.Result != nil {
		w.PutByte(*s.Result)
	}
	w.PutBool(s.Winner != nil)
	if s.Winner != nil {
		w.PutByte(byte(*s.Winner))
	}
	return w.Bytes()
}

// Decode decodes a State previously produced by Serialize.
func Decode(data []byte) (arcadeum.State, error) {
	r := wire.NewReader(data)
	g0, err := r.Bool()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	g1, err := r.Bool()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	hasResult, err := r.Bool()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	var result *byte
	if hasResult {
		b, err := r.Byte()
		if err != nil {
			return nil, arcadeum.SoftError(err)
		}
		result = &b
	}
	hasWinner, err := r.Bool()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	var winner *arcadeum.Player
	if hasWinner {
		b, err := r.Byte()
		if err != nil {
			return nil, arcadeum.SoftError(err)
		}
		p := arcadeum.Player(b)
		winner = &p
	}
	if r.Remaining() != 0 {
		return nil, arcadeum.SoftErrorf("cointoss: %d trailing bytes", r.Remaining())
	}
	return &State{Guessed: [2]bool{g0, g1}, Result: result, Winner: winner}, nil
}

func (s *State) clone() *State {
	next := *s
	return &next
}

// Apply implements arcadeum.State for use outside a Store. Since cointoss
// always needs somewhere to stash each player's secret call, this builds a
// throwaway Ctx for the single transition and rejects any action that would
// need to suspend (a bare State cannot host the commit-reveal exchange).
func (s *State) Apply(player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, error) {
	ctx := &store.Ctx{}
	next, req, _, err := s.Begin(ctx, player, action)
	if err != nil {
		return nil, err
	}
	if req != nil {
		return nil, arcadeum.SoftErrorf("cointoss: requires a Store to resolve the flip")
	}
	return next, nil
}

// Begin implements store.Suspendable. The first call records a guess; the
// second suspends on a random request, and the returned Continuation
// resolves the flip once a seed is agreed.
func (s *State) Begin(ctx *store.Ctx, player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, *store.Request, store.Continuation, error) {
	if s.Result != nil {
		return nil, nil, nil, arcadeum.SoftErrorf("cointoss: the flip has already resolved")
	}
	if player == nil {
		return nil, nil, nil, arcadeum.SoftErrorf("cointoss: only a player may call the flip")
	}
	guess, ok := action.(GuessAction)
	if !ok {
		return nil, nil, nil, arcadeum.SoftErrorf("cointoss: unrecognized action %T", action)
	}
	if s.Guessed[*player] {
		return nil, nil, nil, arcadeum.SoftErrorf("cointoss: player %d has already called the flip", *player)
	}

	next := s.clone()
	next.Guessed[*player] = true
	ctx.SetSecret(*player, guess.Serialize())

	if !next.Guessed[player.Other()] {
		return next, nil, nil, nil
	}
	return nil, &store.Request{Kind: store.RequestRandom}, next.resolve, nil
}

// resolve is the Continuation returned once both players have called: input
// is the agreed XorShift seed, and it settles the flip using each player's
// secretly-stored call.
func (s *State) resolve(ctx *store.Ctx, seed []byte) (arcadeum.State, *store.Request, store.Continuation, error) {
	rng := store.NewXorShiftRNG(seed)
	result := byte(rng.Intn(2))

	final := &State{Guessed: s.Guessed, Result: &result}

	call0 := ctx.Secret(0)
	call1 := ctx.Secret(1)
	correct0 := len(call0) == 1 && call0[0] == result
	correct1 := len(call1) == 1 && call1[0] == result

	switch {
	case correct0 && !correct1:
		w := arcadeum.Player(0)
		final.Winner = &w
	case correct1 && !correct0:
		w := arcadeum.Player(1)
		final.Winner = &w
	}

	ctx.Log(nil, []byte(fmt.Sprintf("the coin landed on %s", sideName(result))))
	return final, nil, nil, nil
}

func sideName(side byte) string {
	if side == 1 {
		return "tails"
	}
	return "heads"
}
