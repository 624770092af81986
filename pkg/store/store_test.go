package store_test

import (
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/horizon-games/arcadeum/internal/tictactoe"
	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/metrics"
	"github.com/horizon-games/arcadeum/pkg/store"
)

type testIdentity struct {
	secret  []byte
	address arcadeum.Address
}

func newTestIdentity(t *testing.T) testIdentity {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return testIdentity{
		secret:  ethcrypto.FromECDSA(key),
		address: arcadeum.AddressOf(ethcrypto.FromECDSAPub(&key.PublicKey)),
	}
}

func (id testIdentity) sign(message []byte) (arcadeum.Signature, error) {
	return arcadeum.Sign(message, id.secret)
}

func newGameStore(t *testing.T) (s *store.Store, p0sign, p1sign func([]byte) (arcadeum.Signature, error), p0addr arcadeum.Address) {
	t.Helper()
	owner := newTestIdentity(t)
	p0 := newTestIdentity(t)
	p1 := newTestIdentity(t)

	domain := store.NewState(tictactoe.New())
	state := arcadeum.NewProofState(arcadeum.RawID("match-1"), arcadeum.Uint64Nonce(0), [2]arcadeum.Address{p0.address, p1.address}, domain)
	root, err := arcadeum.NewRootProof(state, nil, owner.sign)
	if err != nil {
		t.Fatalf("NewRootProof: %v", err)
	}
	s, err = store.New(root, tictactoe.Codec(), tictactoe.StoreVersion, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s, p0.sign, p1.sign, p0.address
}

func TestStoreSerializeRoundTrip(t *testing.T) {
	s, sign, _, _ := newGameStore(t)

	p0 := arcadeum.Player(0)
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&p0, store.NewPlayAction(tictactoe.PlaceAction{Cell: 4}))}, sign); err != nil {
		t.Fatalf("Diff: %v", err)
	}

	data := s.Serialize()
	got, err := store.Deserialize(data, tictactoe.Codec(), nil)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Proof().Hash() != s.Proof().Hash() {
		t.Fatalf("proof hash mismatch after round trip")
	}

	domain, _ := got.Ready()
	board := domain.(*tictactoe.State).Board
	if board[4] != 1 {
		t.Fatalf("expected player 0's mark at cell 4 after round trip, got board %v", board)
	}
}

func TestStoreFlushDeliversThroughLogger(t *testing.T) {
	var delivered int
	logger := store.NewLogger(func(store.Event) { delivered++ })

	owner := newTestIdentity(t)
	p0 := newTestIdentity(t)
	p1 := newTestIdentity(t)

	domain := store.NewState(tictactoe.New())
	state := arcadeum.NewProofState(arcadeum.RawID("match-2"), arcadeum.Uint64Nonce(0), [2]arcadeum.Address{p0.address, p1.address}, domain)
	root, err := arcadeum.NewRootProof(state, nil, owner.sign)
	if err != nil {
		t.Fatalf("NewRootProof: %v", err)
	}
	s, err := store.New(root, tictactoe.Codec(), tictactoe.StoreVersion, logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	pIdx := arcadeum.Player(0)
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&pIdx, store.NewPlayAction(tictactoe.PlaceAction{Cell: 0}))}, p0.sign); err != nil {
		t.Fatalf("Diff: %v", err)
	}
	// tic-tac-toe never logs events, so Flush must not deliver anything, but
	// must also not error.
	s.Flush()
	if delivered != 0 {
		t.Fatalf("expected no events from a game that never logs, got %d", delivered)
	}
}

func TestStoreReportsMetrics(t *testing.T) {
	s, p0sign, p1sign, _ := newGameStore(t)
	registry := metrics.NewRegistry()
	s.WithMetrics(registry)

	p0 := arcadeum.Player(0)
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&p0, store.NewPlayAction(tictactoe.PlaceAction{Cell: 0}))}, p0sign); err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if got := registry.Counter("store.diffs.signed").Value(); got != 1 {
		t.Fatalf("expected 1 signed diff counted, got %d", got)
	}

	// A second diff, now player 1's turn, is counted independently.
	p1 := arcadeum.Player(1)
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&p1, store.NewPlayAction(tictactoe.PlaceAction{Cell: 1}))}, p1sign); err != nil {
		t.Fatalf("second diff: %v", err)
	}
	if got := registry.Counter("store.diffs.signed").Value(); got != 2 {
		t.Fatalf("expected 2 signed diffs counted, got %d", got)
	}

	// An out-of-turn diff is rejected and counted as a soft fault.
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&p1, store.NewPlayAction(tictactoe.PlaceAction{Cell: 2}))}, p1sign); err == nil {
		t.Fatalf("expected an out-of-turn diff to be rejected")
	}
	if got := registry.Counter("store.faults.soft").Value(); got != 1 {
		t.Fatalf("expected 1 soft fault counted, got %d", got)
	}
}

func TestStoreApplyRejectsStaleDiff(t *testing.T) {
	s, p0sign, _, _ := newGameStore(t)
	registry := metrics.NewRegistry()
	s.WithMetrics(registry)

	p0 := arcadeum.Player(0)
	diff, err := s.Diff([]store.ProofActionBuilder{store.Play(&p0, store.NewPlayAction(tictactoe.PlaceAction{Cell: 0}))}, p0sign)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	// Diff already folded the move into s's own proof, so replaying the same
	// diff against s is stale: the proof hash it was signed against no
	// longer matches.
	if err := s.Apply(diff); err == nil {
		t.Fatalf("expected Apply to reject a diff signed against a stale proof hash")
	}
	if got := registry.Counter("store.faults.soft").Value(); got != 1 {
		t.Fatalf("expected the rejected Apply to count as a soft fault, got %d", got)
	}
}

func TestStoreWithCollectorRecordsTaggedDiffs(t *testing.T) {
	s, p0sign, _, _ := newGameStore(t)
	collector := metrics.NewMetricsCollector(metrics.CollectorConfig{EnableHistograms: true})
	s.WithCollector(collector)

	p0 := arcadeum.Player(0)
	d, err := s.Diff([]store.ProofActionBuilder{store.Play(&p0, store.NewPlayAction(tictactoe.PlaceAction{Cell: 0}))}, p0sign)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	entries := collector.GetByTag("author", arcadeum.EIP55(d.Author()))
	if len(entries) != 1 {
		t.Fatalf("expected 1 tagged entry for the diff author, got %d", len(entries))
	}
	if entries[0].Value != 1 {
		t.Fatalf("expected the recorded action count to be 1, got %v", entries[0].Value)
	}
	if collector.HistogramPercentile("store.diff_sign_ms", 100) < 0 {
		t.Fatalf("expected a non-negative sign latency to have been recorded")
	}
}

func TestStoreStartReportingRequiresRegistry(t *testing.T) {
	s, _, _, _ := newGameStore(t)
	if r := s.StartReporting(time.Millisecond); r != nil {
		t.Fatalf("expected StartReporting with no attached registry to return nil")
	}
}

func TestStoreStartReportingExportsRegistrySnapshot(t *testing.T) {
	s, p0sign, _, _ := newGameStore(t)
	registry := metrics.NewRegistry()
	s.WithMetrics(registry)

	p0 := arcadeum.Player(0)
	if _, err := s.Diff([]store.ProofActionBuilder{store.Play(&p0, store.NewPlayAction(tictactoe.PlaceAction{Cell: 0}))}, p0sign); err != nil {
		t.Fatalf("Diff: %v", err)
	}

	reporter := s.StartReporting(time.Millisecond)
	if reporter == nil {
		t.Fatalf("expected a running reporter when a registry is attached")
	}
	defer reporter.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if snap := reporter.Snapshot(); snap["store.diffs.signed"] == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected the reporter's snapshot to reflect the registry's counters")
}
