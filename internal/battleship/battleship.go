// Package battleship is a two-player game where each side privately
// commits a 100-cell board (ship or no ship per cell) as a salted Merkle
// tree and publishes only the root at genesis. A shot at a cell suspends
// the transition on a reveal from the defender: a Merkle inclusion proof
// against their committed root, which both proves the cell's content and
// that it wasn't chosen after the fact. It exercises pkg/merkle end to end
// and pkg/store's RequestReveal suspension (as opposed to cointoss's
// RequestRandom).
package battleship

import (
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/crypto"
	"github.com/horizon-games/arcadeum/pkg/merkle"
	"github.com/horizon-games/arcadeum/pkg/store"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// Version identifies this game's serialized wire format.
var Version = []byte("battleship/v1")

// BoardSize is the number of cells on each player's board.
const BoardSize = 100

// TotalShots is the number of shots taken (summed across both players)
// before the match ends and a winner is decided by score.
const TotalShots = 20

// State is the public game state: each player's committed board root, the
// running score, whose turn it is, how many shots have landed, and the
// winner once decided.
type State struct {
	Roots     [2]crypto.Hash
	Score     [2]byte
	Turn      arcadeum.Player
	ShotCount int
	Winner    *arcadeum.Player // nil: in progress, non-nil: that player won, out-of-range value (2) on a tie
}

// NewBoard builds the salted Merkle tree for one player's board:
// elements[i] is a single byte, 1 if a ship occupies cell i, 0 otherwise.
func NewBoard(ships [BoardSize]bool, salts [BoardSize][]byte) (*merkle.Tree, error) {
	elements := make([][]byte, BoardSize)
	saltSlice := make([][]byte, BoardSize)
	for i, hasShip := range ships {
		if hasShip {
			elements[i] = []byte{1}
		} else {
			elements[i] = []byte{0}
		}
		saltSlice[i] = salts[i]
	}
	return merkle.NewSalted(elements, saltSlice)
}

// New returns a fresh game, given the two players' committed board roots.
func New(roots [2]crypto.Hash) *State {
	return &State{Roots: roots}
}

// ShotAction fires at Cell on the opposing player's board.
type ShotAction struct {
	Cell int
}

// Serialize encodes the action as a single little-endian u32 cell index.
func (a ShotAction) Serialize() []byte {
	w := wire.NewWriter()
	w.PutUint32(uint32(a.Cell))
	return w.Bytes()
}

// DecodeAction decodes a ShotAction.
func DecodeAction(data []byte) (arcadeum.Action, error) {
	r := wire.NewReader(data)
	cell, err := r.Uint32()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	if r.Remaining() != 0 {
		return nil, arcadeum.SoftErrorf("battleship: %d trailing bytes", r.Remaining())
	}
	return ShotAction{Cell: int(cell)}, nil
}

// Version returns the game's wire format tag.
func (s *State) Version() []byte { return Version }

// IsSerializable is always true: battleship keeps no hidden state of its
// own, only the public roots and score.
func (s *State) IsSerializable() bool { return true }

// Serialize encodes: roots[0] ‖ roots[1] ‖ score[0] ‖ score[1] ‖ turn ‖
// u32 shot_count ‖ has_winner ‖ winner?.
func (s *State) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBytes(s.Roots[0][:])
	w.PutBytes(s.Roots[1][:])
	w.PutByte(s.Score[0])
	w.PutByte(s.Score[1])
	w.PutByte(byte(s.Turn))
	w.PutUint32(uint32(s.ShotCount))
	w.PutBool(s.Winner != nil)
	if s.Winner != nil {
		w.PutByte(byte(*s.Winner))
	}
	return w.Bytes()
}

// Decode decodes a State previously produced by Serialize.
func Decode(data []byte) (arcadeum.State, error) {
	r := wire.NewReader(data)
	root0, err := r.Bytes(crypto.HashLength)
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	root1, err := r.Bytes(crypto.HashLength)
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	score0, err := r.Byte()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	score1, err := r.Byte()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	turn, err := r.Byte()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	shotCount, err := r.Uint32()
	if err != nil {
		return nil, arcadeum.SoftError(err)
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
		return nil, arcadeum.SoftErrorf("battleship: %d trailing bytes", r.Remaining())
	}
	return &State{
		Roots:     [2]crypto.Hash{crypto.BytesToHash(root0), crypto.BytesToHash(root1)},
		Score:     [2]byte{score0, score1},
		Turn:      arcadeum.Player(turn),
		ShotCount: int(shotCount),
		Winner:    winner,
	}, nil
}

func (s *State) clone() *State {
	next := *s
	return &next
}

// Apply implements arcadeum.State for use outside a Store; battleship
// always needs a Store to host the reveal exchange, so this rejects any
// action that would suspend.
func (s *State) Apply(player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, error) {
	ctx := &store.Ctx{}
	next, req, _, err := s.Begin(ctx, player, action)
	if err != nil {
		return nil, err
	}
	if req != nil {
		return nil, arcadeum.SoftErrorf("battleship: requires a Store to resolve a shot")
	}
	return next, nil
}

// Begin implements store.Suspendable. Every shot suspends: the defender
// (the player not firing) must produce a Merkle inclusion proof for the
// targeted cell against their committed root.
func (s *State) Begin(ctx *store.Ctx, player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, *store.Request, store.Continuation, error) {
	if s.Winner != nil {
		return nil, nil, nil, arcadeum.SoftErrorf("battleship: the match is already over")
	}
	if player == nil {
		return nil, nil, nil, arcadeum.SoftErrorf("battleship: shots must be fired by a player")
	}
	if *player != s.Turn {
		return nil, nil, nil, arcadeum.SoftErrorf("battleship: it is player %d's turn, not %d", s.Turn, *player)
	}
	shot, ok := action.(ShotAction)
	if !ok {
		return nil, nil, nil, arcadeum.SoftErrorf("battleship: unrecognized action %T", action)
	}
	if shot.Cell < 0 || shot.Cell >= BoardSize {
		return nil, nil, nil, arcadeum.SoftErrorf("battleship: cell %d out of range", shot.Cell)
	}

	shooter := *player
	defender := shooter.Other()
	root := s.Roots[defender]

	req := &store.Request{
		Kind:   store.RequestReveal,
		Unique: true,
		Player: &defender,
		Verify: func(data []byte) bool {
			proof, err := merkle.DeserializeProof(data)
			if err != nil {
				return false
			}
			return proof.Index == shot.Cell && proof.Length == BoardSize && proof.Verify(root)
		},
	}
	return nil, req, s.resolveShot(shooter, defender), nil
}

// resolveShot closes over the shooter, defender, and the pre-shot state,
// and is invoked once a verified Merkle proof for the targeted cell
// arrives.
func (s *State) resolveShot(shooter, defender arcadeum.Player) store.Continuation {
	return func(ctx *store.Ctx, input []byte) (arcadeum.State, *store.Request, store.Continuation, error) {
		proof, err := merkle.DeserializeProof(input)
		if err != nil {
			return nil, nil, nil, arcadeum.SoftError(err)
		}
		hit := len(proof.Element) == 1 && proof.Element[0] == 1

		next := s.clone()
		if hit {
			next.Score[shooter]++
		}
		next.ShotCount++
		next.Turn = defender

		if next.ShotCount >= TotalShots {
			next.Winner = winnerOf(next.Score)
		}

		ctx.Log(nil, []byte{boolByte(hit)})
		return next, nil, nil, nil
	}
}

func winnerOf(score [2]byte) *arcadeum.Player {
	var w arcadeum.Player
	switch {
	case score[0] > score[1]:
		w = 0
	case score[1] > score[0]:
		w = 1
	default:
		w = 2 // tie, out of player range, mirrors tictactoe's draw sentinel
	}
	return &w
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
