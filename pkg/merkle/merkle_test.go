package merkle

import "testing"

func elements(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i), byte(i * 7)}
	}
	return out
}

func TestProofVerifiesForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13, 17} {
		tree, err := New(elements(n))
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		for i := 0; i < n; i++ {
			proof, err := tree.Proof(i)
			if err != nil {
				t.Fatalf("Proof(%d) at n=%d: %v", i, n, err)
			}
			if !proof.Verify(tree.Root()) {
				t.Fatalf("proof for leaf %d of %d did not verify", i, n)
			}
		}
	}
}

func TestAuditPathLengthsDifferByAtMostOne(t *testing.T) {
	tree, err := New(elements(11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	min, max := -1, -1
	for i := 0; i < tree.Len(); i++ {
		proof, err := tree.Proof(i)
		if err != nil {
			t.Fatalf("Proof(%d): %v", i, err)
		}
		l := len(proof.Hashes)
		if min == -1 || l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	if max-min > 1 {
		t.Fatalf("audit path lengths span %d to %d, want a spread of at most 1", min, max)
	}
}

func TestTamperedElementFailsVerification(t *testing.T) {
	tree, err := New(elements(6))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	proof, err := tree.Proof(2)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	proof.Element = []byte{0xff, 0xff}
	if proof.Verify(tree.Root()) {
		t.Fatalf("tampered element unexpectedly verified")
	}
}

func TestSaltedTreeHidesElementUntilRevealed(t *testing.T) {
	elems := elements(4)
	salts := [][]byte{{1}, {2}, {3}, {4}}
	tree, err := NewSalted(elems, salts)
	if err != nil {
		t.Fatalf("NewSalted: %v", err)
	}
	unsalted, err := New(elems)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tree.Root() == unsalted.Root() {
		t.Fatalf("salted and unsalted trees over the same elements produced the same root")
	}
	proof, err := tree.Proof(1)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	if !proof.Verify(tree.Root()) {
		t.Fatalf("salted proof did not verify")
	}
}

func TestEmptyTreeRejected(t *testing.T) {
	if _, err := New(nil); err != ErrEmptyTree {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tree, err := New(elements(9))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := Deserialize(tree.Serialize())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Root() != tree.Root() {
		t.Fatalf("root mismatch after round trip")
	}
}

func TestProofSerializeRoundTrip(t *testing.T) {
	tree, err := New(elements(9))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	proof, err := tree.Proof(4)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	got, err := DeserializeProof(proof.Serialize())
	if err != nil {
		t.Fatalf("DeserializeProof: %v", err)
	}
	if !got.Verify(tree.Root()) {
		t.Fatalf("deserialized proof did not verify")
	}
}
