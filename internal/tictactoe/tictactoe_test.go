package tictactoe

import (
	"testing"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/store"
	"github.com/horizon-games/arcadeum/pkg/tester"
)

func newHarness(t *testing.T) *tester.Harness {
	t.Helper()
	h, err := tester.NewHarness(store.NewState(New()), arcadeum.RawID("game-1"), arcadeum.Uint64Nonce(0), Codec(), StoreVersion)
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	return h
}

func place(p arcadeum.Player, cell int) store.ProofActionBuilder {
	return store.Play(&p, store.NewPlayAction(PlaceAction{Cell: cell}))
}

func TestPlayerZeroWins(t *testing.T) {
	h := newHarness(t)

	// X: 0, O: 3, X: 1, O: 4, X: 2 (top row) -> player 0 wins.
	moves := []struct {
		player arcadeum.Player
		cell   int
	}{
		{0, 0}, {1, 3}, {0, 1}, {1, 4}, {0, 2},
	}
	for _, m := range moves {
		if err := h.PlayAsPlayer(m.player, place(m.player, m.cell)); err != nil {
			t.Fatalf("play cell %d as player %d: %v", m.cell, m.player, err)
		}
		if err := h.AssertConsensus(); err != nil {
			t.Fatalf("consensus after cell %d: %v", m.cell, err)
		}
	}

	domain, _ := h.OwnerStore.Ready()
	st, ok := domain.(*State)
	if !ok {
		t.Fatalf("expected *tictactoe.State, got %T", domain)
	}
	if st.Winner == nil || *st.Winner != 0 {
		t.Fatalf("expected player 0 to have won, got %+v", st.Winner)
	}
}

func TestOutOfTurnRejected(t *testing.T) {
	h := newHarness(t)
	if err := h.PlayAsPlayer(1, place(1, 0)); err == nil {
		t.Fatalf("expected out-of-turn move to be rejected")
	}
}

func TestOccupiedCellRejected(t *testing.T) {
	h := newHarness(t)
	if err := h.PlayAsPlayer(0, place(0, 4)); err != nil {
		t.Fatalf("first move: %v", err)
	}
	if err := h.PlayAsPlayer(1, place(1, 4)); err == nil {
		t.Fatalf("expected occupied-cell move to be rejected")
	}
}

func TestDraw(t *testing.T) {
	h := newHarness(t)

	// A standard drawn game.
	// X O X
	// X O O
	// O X X
	moves := []struct {
		player arcadeum.Player
		cell   int
	}{
		{0, 0}, {1, 1}, {0, 2}, {1, 4},
		{0, 3}, {1, 5}, {0, 7}, {1, 6}, {0, 8},
	}
	for _, m := range moves {
		if err := h.PlayAsPlayer(m.player, place(m.player, m.cell)); err != nil {
			t.Fatalf("play cell %d as player %d: %v", m.cell, m.player, err)
		}
	}
	if err := h.AssertConsensus(); err != nil {
		t.Fatalf("consensus: %v", err)
	}

	domain, _ := h.OwnerStore.Ready()
	st := domain.(*State)
	if st.Winner == nil || *st.Winner != 2 {
		t.Fatalf("expected a draw, got %+v", st.Winner)
	}
}

func TestStateSerializeRoundTrip(t *testing.T) {
	winner := byte(1)
	st := &State{Board: Board{1, 2, 1, 0, 2, 0, 0, 0, 0}, Turn: 1, Winner: &winner}
	data := st.Serialize()
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotState := got.(*State)
	if gotState.Board != st.Board {
		t.Fatalf("board mismatch: got %v want %v", gotState.Board, st.Board)
	}
	if gotState.Turn != st.Turn {
		t.Fatalf("turn mismatch: got %d want %d", gotState.Turn, st.Turn)
	}
	if gotState.Winner == nil || *gotState.Winner != *st.Winner {
		t.Fatalf("winner mismatch: got %v want %v", gotState.Winner, st.Winner)
	}
}

func TestStateSerializeRoundTripInProgress(t *testing.T) {
	st := New()
	st.Board[0] = 1
	data := st.Serialize()
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotState := got.(*State)
	if gotState.Winner != nil {
		t.Fatalf("expected no winner, got %v", gotState.Winner)
	}
	if gotState.Board[0] != 1 {
		t.Fatalf("expected cell 0 to be occupied")
	}
}
