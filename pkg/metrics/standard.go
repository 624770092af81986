package metrics

// Pre-defined metrics for the state-channel protocol. All metrics live in
// DefaultRegistry so they are globally accessible without passing a registry
// around. No package of this module updates them; pkg/store reports into the
// Registry attached with Store.WithMetrics, under its own metric names.

var (
	// ---- Proof / diff metrics ----

	// DiffsApplied counts diffs successfully folded into a Proof.
	DiffsApplied = DefaultRegistry.Counter("proof.diffs_applied")
	// DiffsRejected counts diffs rejected during apply.
	DiffsRejected = DefaultRegistry.Counter("proof.diffs_rejected")
	// CheckpointCompactions counts prefix-compactions performed while
	// advancing a Proof's checkpoint slots.
	CheckpointCompactions = DefaultRegistry.Counter("proof.checkpoint_compactions")
	// ApplyLatency records Proof.Apply duration in milliseconds.
	ApplyLatency = DefaultRegistry.Histogram("proof.apply_ms")

	// ---- Signature metrics ----

	// SignaturesRecovered counts ECDSA recoveries performed (cache misses).
	SignaturesRecovered = DefaultRegistry.Counter("crypto.signatures_recovered")
	// SignatureCacheHits counts recovery cache hits.
	SignatureCacheHits = DefaultRegistry.Counter("crypto.signature_cache_hits")

	// ---- Store / commit-reveal metrics ----

	// RandomCommits counts RandomCommit actions dispatched.
	RandomCommits = DefaultRegistry.Counter("store.random_commits")
	// RandomReveals counts completed commit-reveal exchanges.
	RandomReveals = DefaultRegistry.Counter("store.random_reveals")
	// SecretReveals counts completed secret-reveal exchanges.
	SecretReveals = DefaultRegistry.Counter("store.secret_reveals")
	// TimeoutsDispatched counts owner-issued timeout actions.
	TimeoutsDispatched = DefaultRegistry.Counter("store.timeouts_dispatched")
	// PendingTransitions tracks the number of StoreStates currently suspended
	// mid-transition (awaiting randomness or a reveal).
	PendingTransitions = DefaultRegistry.Gauge("store.pending_transitions")
)
