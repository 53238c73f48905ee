// Package scheduler drives the agent's periodic sample-encode-deliver
// cycles. It owns the lifecycle state machine
// (Starting → Running → Stopping → Stopped), guarantees at most one active
// cycle at a time, and isolates every per-cycle failure so a bad cycle is a
// gap in the delivered stream, never a dead agent.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String returns a log-friendly name for the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// maxGrace caps the shutdown grace period regardless of interval length.
const maxGrace = 30 * time.Second

// Sampler produces one validated snapshot per call.
type Sampler interface {
	Sample(ctx context.Context) (*models.MetricSnapshot, error)
}

// Encoder turns a snapshot into its wire payload.
type Encoder func(*models.MetricSnapshot) ([]byte, error)

// Deliverer sends one encoded payload to the collector.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Scheduler runs the periodic collection loop.
type Scheduler struct {
	sampler  Sampler
	encode   Encoder
	deliver  Deliverer
	interval time.Duration
	logger   *zap.Logger

	state       atomic.Int32
	cycleActive atomic.Bool
	inflight    sync.WaitGroup

	cycles   atomic.Uint64
	failures atomic.Uint64
	skipped  atomic.Uint64
}

// New creates a Scheduler. interval is the sampling period; it also bounds
// each cycle's delivery budget and the shutdown grace.
func New(sampler Sampler, encode Encoder, deliver Deliverer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sampler:  sampler,
		encode:   encode,
		deliver:  deliver,
		interval: interval,
		logger:   logger,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Counters returns the completed, failed, and skipped cycle counts.
func (s *Scheduler) Counters() (cycles, failures, skipped uint64) {
	return s.cycles.Load(), s.failures.Load(), s.skipped.Load()
}

// Run executes the loop until ctx is cancelled. It primes the sampler's
// counter baselines with a throwaway first sample, then ticks at the
// configured interval, running one cycle per tick. A tick that arrives
// while a cycle is still in flight is skipped: cycles never overlap, a
// slow delivery just costs the stream a sample.
//
// Run returns nil after a clean shutdown. Cycle failures are absorbed here
// and never propagate to the caller.
func (s *Scheduler) Run(ctx context.Context) error {
	s.state.Store(int32(StateStarting))

	// Baseline prime: establishes network-counter and per-process CPU
	// baselines. The snapshot is discarded, and failure is not fatal —
	// only configuration problems abort startup, and those are caught
	// before the scheduler is built.
	primeCtx, cancel := context.WithTimeout(ctx, s.interval)
	if _, err := s.sampler.Sample(primeCtx); err != nil {
		s.logger.Warn("Baseline sample failed", zap.Error(err))
	}
	cancel()

	s.state.Store(int32(StateRunning))
	s.logger.Info("Scheduler running", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First delivered cycle starts immediately rather than one interval in.
	s.startCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-ticker.C:
			s.startCycle(ctx)
		}
	}
}

// startCycle launches one cycle unless a previous cycle is still in flight,
// in which case the tick is skipped.
func (s *Scheduler) startCycle(ctx context.Context) {
	if !s.cycleActive.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("Previous cycle still in flight, skipping tick",
			zap.Uint64("skipped_total", s.skipped.Load()))
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.cycleActive.Store(false)
		s.runCycle(ctx)
	}()
}

// runCycle executes one Sample → Encode → Deliver pass. Every error is
// recovered here: logged, counted, and the cycle ends early.
func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()

	sampleCtx, cancelSample := context.WithTimeout(ctx, s.interval)
	snapshot, err := s.sampler.Sample(sampleCtx)
	cancelSample()
	if err != nil {
		s.failures.Add(1)
		s.logger.Error("Cycle failed: sampling", zap.Error(err))
		return
	}

	payload, err := s.encode(snapshot)
	if err != nil {
		// Should not happen for a validated snapshot; treated as a defect.
		s.failures.Add(1)
		s.logger.Error("Cycle failed: encoding", zap.Error(err))
		return
	}

	// The delivery retry budget is one interval: a stuck delivery is
	// abandoned rather than allowed to starve subsequent cycles forever.
	deliverCtx, cancelDeliver := context.WithTimeout(ctx, s.interval)
	defer cancelDeliver()

	if err := s.deliver.Deliver(deliverCtx, payload); err != nil {
		s.failures.Add(1)
		s.logger.Error("Cycle failed: delivery",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return
	}

	s.cycles.Add(1)
	s.logger.Debug("Cycle complete",
		zap.Uint64("cycles_total", s.cycles.Load()),
		zap.Duration("elapsed", time.Since(start)))
}

// shutdown waits for any in-flight cycle up to the grace period, then
// reports Stopped. The cycle's context is already cancelled, so delivery
// backoff waits unwind promptly rather than running out their timers.
func (s *Scheduler) shutdown() error {
	s.state.Store(int32(StateStopping))

	grace := s.interval
	if grace > maxGrace {
		grace = maxGrace
	}
	s.logger.Info("Stopping", zap.Duration("grace", grace))

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("Grace period elapsed with cycle still in flight")
	}

	s.state.Store(int32(StateStopped))
	cycles, failures, skipped := s.Counters()
	s.logger.Info("Scheduler stopped",
		zap.Uint64("cycles", cycles),
		zap.Uint64("failures", failures),
		zap.Uint64("skipped_ticks", skipped))
	return nil
}
