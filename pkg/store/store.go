package store

import (
	"time"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
	"github.com/horizon-games/arcadeum/pkg/log"
	"github.com/horizon-games/arcadeum/pkg/metrics"
	"github.com/horizon-games/arcadeum/pkg/wire"
)

var storeLog = log.Default().Module("store")

// Store is the client-facing handle on a single game: it owns the signed
// Proof transcript, drains the domain's log events as they're produced, and
// exposes the handful of operations a client or server needs -- submit a
// diff, receive one, force an owner-arbitrated timeout, or reset to
// genesis.
type Store struct {
	root    *arcadeum.RootProof
	proof   *arcadeum.Proof
	codec   *arcadeum.Codec
	version []byte
	logger  *Logger
	events  []Event

	metrics    *metrics.Registry
	collector  *metrics.MetricsCollector
	applyMeter *metrics.Meter
}

// WithCollector attaches a tagged metrics.MetricsCollector that Diff records
// into: the number of actions signed, tagged by the diff author's EIP-55
// address, and the untagged signing latency in milliseconds.
// A Store with no collector attached (the zero value) skips this reporting.
func (s *Store) WithCollector(c *metrics.MetricsCollector) *Store {
	s.collector = c
	return s
}

// WithMetrics attaches a metrics.Registry that Diff and Apply report
// operational counters to (diffs signed, diffs applied, faults by kind).
// A Store with no registry attached (the zero value) skips all reporting.
func (s *Store) WithMetrics(r *metrics.Registry) *Store {
	s.metrics = r
	return s
}

// logReportBackend forwards a metrics.MetricsReporter's periodic snapshot to
// a module logger at Info level, one field per metric.
type logReportBackend struct {
	logger *log.Logger
}

// Report implements metrics.ReportBackend.
func (b logReportBackend) Report(snapshot map[string]float64) error {
	args := make([]any, 0, len(snapshot)*2)
	for name, value := range snapshot {
		args = append(args, name, value)
	}
	b.logger.Info("metrics report", args...)
	return nil
}

// StartReporting begins periodic logging of this Store's attached metrics
// registry (see WithMetrics) at the given interval. Every tick also samples
// this process's own CPU usage into a process.cpu_percent gauge, which
// shows up in the registry (and so in the report) starting the following
// tick. The returned reporter is already running; the caller is responsible
// for calling Stop on it, e.g. at shutdown. StartReporting is a no-op,
// returning nil, if no registry is attached.
func (s *Store) StartReporting(interval time.Duration) *metrics.MetricsReporter {
	if s.metrics == nil {
		return nil
	}
	cpu := metrics.NewCPUTracker()
	cpuGauge := s.metrics.Gauge("process.cpu_percent")
	rateGauge := s.metrics.Gauge("store.apply_rate_per_minute")
	reporter := metrics.NewRegistryReporter(s.metrics, interval)
	reporter.RegisterBackend("cpu-sampler", reportBackendFunc(func(map[string]float64) error {
		cpu.RecordCPU()
		cpuGauge.Set(int64(cpu.Usage()))
		rateGauge.Set(int64(s.applyMeter.Rate1PerMinute()))
		return nil
	}))
	reporter.RegisterBackend("log", logReportBackend{logger: storeLog})
	reporter.Start()
	return reporter
}

// reportBackendFunc adapts a plain func to metrics.ReportBackend.
type reportBackendFunc func(map[string]float64) error

// Report implements metrics.ReportBackend.
func (f reportBackendFunc) Report(snapshot map[string]float64) error { return f(snapshot) }

func (s *Store) recordFault(err error) {
	if s.metrics == nil || err == nil {
		return
	}
	if _, hard := arcadeum.IsHard(err); hard {
		s.metrics.Counter("store.faults.hard").Inc()
	} else {
		s.metrics.Counter("store.faults.soft").Inc()
	}
}

// New builds a Store from a game's genesis RootProof.
func New(root *arcadeum.RootProof, codec *arcadeum.Codec, version []byte, logger *Logger) (*Store, error) {
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		return nil, err
	}
	s := &Store{root: root, proof: proof, codec: codec, version: version, logger: logger, applyMeter: metrics.NewMeter()}
	s.drainEvents()
	return s, nil
}

// ApplyRate returns the rate of successful Apply calls, as 1-, 5-, and
// 15-minute exponentially weighted moving averages of diffs/second.
func (s *Store) ApplyRate() (rate1, rate5, rate15 float64) {
	return s.applyMeter.Rate1(), s.applyMeter.Rate5(), s.applyMeter.Rate15()
}

// Owner returns the channel owner's address.
func (s *Store) Owner() arcadeum.Address { return s.root.Author() }

// Proof returns the underlying signed transcript.
func (s *Store) Proof() *arcadeum.Proof { return s.proof }

// Ready reports the current domain state together with each player's
// decrypted secret, mirroring the ready(state, [secret0?, secret1?])
// callback external bindings expect once a transition settles.
func (s *Store) Ready() (arcadeum.State, [2][]byte) {
	latest := s.proof.Latest()
	domain := latest.Domain()
	if ss, ok := domain.(*State); ok {
		return ss.Inner(), ss.secrets
	}
	return domain, [2][]byte{}
}

func (s *Store) drainEvents() {
	if ss, ok := s.proof.Latest().Domain().(*State); ok {
		fresh := ss.Events()
		if len(fresh) > 0 {
			s.events = append(s.events, fresh...)
		}
	}
}

// Flush delivers any events produced since the last Flush to the Store's
// Logger (if any) and returns the full event log observed so far.
func (s *Store) Flush() []Event {
	s.drainEvents()
	if s.logger != nil {
		s.logger.Deliver(s.events)
	}
	return s.events
}

// Apply reconciles a diff received from a peer into the local Proof.
func (s *Store) Apply(diff *arcadeum.Diff) error {
	if err := s.proof.Apply(diff); err != nil {
		s.recordFault(err)
		storeLog.Debug("apply rejected", "author", arcadeum.EIP55(diff.Author()), "error", err)
		return err
	}
	if s.metrics != nil {
		s.metrics.Counter("store.diffs.applied").Inc()
	}
	s.applyMeter.Mark(1)
	s.Flush()
	return nil
}

// Diff signs and folds in a batch of new actions, returning the Diff to
// send to the peer.
func (s *Store) Diff(actions []ProofActionBuilder, sign func([]byte) (arcadeum.Signature, error)) (*arcadeum.Diff, error) {
	start := time.Now()
	built := make([]arcadeum.ProofAction, len(actions))
	for i, a := range actions {
		built[i] = a()
	}
	d, err := s.proof.Diff(built, sign)
	if err != nil {
		s.recordFault(err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Counter("store.diffs.signed").Inc()
		s.metrics.Histogram("store.diffs.action_count").Observe(float64(len(built)))
	}
	if s.collector != nil {
		tags := map[string]string{"author": arcadeum.EIP55(d.Author())}
		s.collector.Record("store.diffs.signed", float64(len(built)), tags)
		s.collector.RecordHistogram("store.diff_sign_ms", float64(time.Since(start).Milliseconds()))
	}
	s.Flush()
	return d, nil
}

// DispatchTimeout is a Diff submission restricted to the owner: the only
// party allowed to force resolution when a player stops responding.
func (s *Store) DispatchTimeout(actions []ProofActionBuilder, sign func([]byte) (arcadeum.Signature, error)) (*arcadeum.Diff, error) {
	d, err := s.Diff(actions, sign)
	if err != nil {
		return nil, err
	}
	if d.Author() != s.Owner() {
		return nil, arcadeum.SoftErrorf("store: dispatch_timeout must be authored by the owner")
	}
	return d, nil
}

// Reset discards all progress and returns the Store to a fresh genesis.
func (s *Store) Reset(root *arcadeum.RootProof) error {
	proof, err := arcadeum.NewProofFromRootProof(root)
	if err != nil {
		return err
	}
	s.root = root
	s.proof = proof
	s.events = nil
	return nil
}

// ProofActionBuilder defers construction of a ProofAction so Diff can
// pass along whichever of Play/Certify/Approve the caller wants without a
// wider surface than arcadeum.ProofAction itself.
type ProofActionBuilder func() arcadeum.ProofAction

// Play builds a ProofActionBuilder for a store.Action played by player.
func Play(player *arcadeum.Player, action Action) ProofActionBuilder {
	return func() arcadeum.ProofAction { return arcadeum.NewPlay(player, action) }
}

// Serialize encodes the Store as: blob(version) ‖ blob(root_proof_bytes) ‖
// blob(proof_bytes).
func (s *Store) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBlob(s.version)
	w.PutBlob(s.root.Serialize())
	w.PutBlob(s.proof.Serialize())
	return w.Bytes()
}

// Deserialize decodes a Store previously produced by Serialize.
func Deserialize(data []byte, codec *arcadeum.Codec, logger *Logger) (*Store, error) {
	r := wire.NewReader(data)
	version, err := r.Blob()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	rootBlob, err := r.Blob()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	root, err := arcadeum.DeserializeRootProof(rootBlob, codec, version)
	if err != nil {
		return nil, err
	}
	proofBlob, err := r.Blob()
	if err != nil {
		return nil, arcadeum.SoftError(err)
	}
	proof, err := arcadeum.DeserializeProof(proofBlob, codec, root.Author(), version)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, arcadeum.SoftErrorf("store: %d trailing bytes", r.Remaining())
	}
	s := &Store{root: root, proof: proof, codec: codec, version: version, logger: logger, applyMeter: metrics.NewMeter()}
	s.drainEvents()
	return s, nil
}
