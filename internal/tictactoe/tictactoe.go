// Package tictactoe is a minimal two-player game implementing
// arcadeum.State and store.Suspendable, used to exercise the protocol
// end to end: it never suspends, so it doubles as the simplest possible
// worked example of wiring a domain into the Store.
package tictactoe

import (
	"fmt"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/store"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

// Version identifies this game's serialized wire format.
var Version = []byte("tictactoe/v1")

// Board is a 3x3 grid; 0 empty, 1 player 0's mark, 2 player 1's mark.
type Board [9]byte

// State is the game state: the board, whose turn it is, and the winner
// once decided (2 meaning a draw).
type State struct {
	Board  Board
	Turn   arcadeum.Player
	Winner *byte // nil: in progress, 0/1: that player won, 2: draw
}

// New returns the starting position with player 0 to move.
func New() *State {
	return &State{}
}

// PlaceAction places the acting player's mark at Cell.
type PlaceAction struct {
	Cell int
}

// Serialize encodes the action as a single byte: the cell index.
func (a PlaceAction) Serialize() []byte { return []byte{byte(a.Cell)} }

// DecodeAction decodes a PlaceAction.
func DecodeAction(data []byte) (arcadeum.Action, error) {
	if len(data) != 1 {
		return nil, arcadeum.SoftErrorf("tictactoe: action must be 1 byte, got %d", len(data))
	}
	return PlaceAction{Cell: int(data[0])}, nil
}

// Version returns the game's wire format tag.
func (s *State) Version() []byte { return Version }

// IsSerializable is always true: tic-tac-toe has no hidden state or
// mid-animation phase.
func (s *State) IsSerializable() bool { return true }

// Serialize encodes: 9 board bytes ‖ turn byte ‖ u8 has_winner ‖ winner?.
func (s *State) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBytes(s.Board[:])
	w.PutByte(byte(s.Turn))
	w.PutBool(s.Winner != nil)
	if s.Winner != nil {
		w.PutByte(*s.Winner)
	}
	return w.Bytes()
}

// Decode decodes a State previously produced by Serialize.
func Decode(data []byte) (arcadeum.State, error) {
	r := wire.NewReader(data)
	boardBytes, err := r.Bytes(9)
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	turn, err := r.Byte()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	hasWinner, err := r.Bool()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	var winner *byte
	if hasWinner {
		b, err := r.Byte()
		if err != nil {
			return nil, arcadeum.SoftError(err)
		}
		winner = &b
	}
	if r.Remaining() != 0 {
		return nil, arcadeum.SoftErrorf("tictactoe: %d trailing bytes", r.Remaining())
	}
	var board Board
	copy(board[:], boardBytes)
	return &State{Board: board, Turn: arcadeum.Player(turn), Winner: winner}, nil
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func checkWinner(b Board) *byte {
	for _, line := range winLines {
		a, x, y := b[line[0]], b[line[1]], b[line[2]]
		if a != 0 && a == x && a == y {
			w := a - 1
			return &w
		}
	}
	full := true
	for _, c := range b {
		if c == 0 {
			full = false
			break
		}
	}
	if full {
		draw := byte(2)
		return &draw
	}
	return nil
}

// Apply implements arcadeum.State directly (tic-tac-toe never suspends, so
// this and Begin do the same work).
func (s *State) Apply(player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, error) {
	next, _, _, err := s.Begin(nil, player, action)
	return next, err
}

// Begin implements store.Suspendable: tic-tac-toe never returns a pending
// Request, it always completes synchronously.
func (s *State) Begin(ctx *store.Ctx, player *arcadeum.Player, action arcadeum.Action) (arcadeum.State, *store.Request, store.Continuation, error) {
	if s.Winner != nil {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: game is already over")
	}
	if player == nil {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: moves must be played by a player")
	}
	if *player != s.Turn {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: it is player %d's turn, not %d", s.Turn, *player)
	}
	place, ok := action.(PlaceAction)
	if !ok {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: unrecognized action %T", action)
	}
	if place.Cell < 0 || place.Cell >= 9 {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: cell %d out of range", place.Cell)
	}
	if s.Board[place.Cell] != 0 {
		return nil, nil, nil, arcadeum.SoftErrorf("tictactoe: cell %d is already occupied", place.Cell)
	}

	next := &State{Board: s.Board, Turn: s.Turn.Other()}
	next.Board[place.Cell] = byte(*player) + 1
	next.Winner = checkWinner(next.Board)
	return next, nil, nil, nil
}

// String renders the board for debugging.
func (b Board) String() string {
	glyphs := func(c byte) string {
		switch c {
		case 1:
			return "X"
		case 2:
			return "O"
		default:
			return "."
		}
	}
	out := ""
	for i := 0; i < 9; i += 3 {
		out += fmt.Sprintf("%s%s%s\n", glyphs(b[i]), glyphs(b[i+1]), glyphs(b[i+2]))
	}
	return out
}
