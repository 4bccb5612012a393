package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tessieres/velib-pipeline/internal/domain"
	"github.com/tessieres/velib-pipeline/internal/observability"
)

// Fetcher blocks until the next inbound message arrives.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.InboundMessage, error)
}

// Store persists canonical station records.
type Store interface {
	Upsert(ctx context.Context, rec domain.StationStatusRecord) error
}

// Pipeline orchestrates the consume-map-upsert-commit loop.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	ready   atomic.Bool
}

// New creates a Pipeline with the given source, store, and observability.
func New(f Fetcher, s Store, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		store:   s,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// SetClock swaps the time source behind the lag and duration measurements.
// Production code uses the real clock; tests inject a fake for deterministic
// output. Pass nil to reset to real time.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	if c == nil {
		p.clock = clockwork.NewRealClock()
		return
	}
	p.clock = c
}

// Ready reports whether the consume loop is running.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once the consume loop is running, or an error
// describing why the service is not ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("consumer loop is not running")
	}
	return nil
}

// Run executes the consume loop until the context is cancelled. The loop
// itself never returns an error: malformed messages and store outages are
// logged, counted, and left uncommitted for redelivery.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("consumer started")
	p.metrics.PipelineRunning.Set(1)
	p.ready.Store(true)
	defer func() {
		p.ready.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during broker or
	// store outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processNext(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processNext runs one consume-map-upsert-commit cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processNext(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	msg, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("fetch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.MessagesConsumed.Inc()
	if !msg.Timestamp.IsZero() {
		p.metrics.MessageLag.Observe(p.clock.Since(msg.Timestamp).Seconds())
	}
	*backoff = 200 * time.Millisecond

	start := p.clock.Now()

	rec, err := mapInbound(msg)
	if err != nil {
		// The message is malformed, not the store unavailable. Its
		// checkpoint stays put; a commit for any later message on the
		// partition passes over it.
		p.logger.Warn("message rejected, checkpoint withheld",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		p.metrics.MappingFailures.Inc()
		return true
	}

	if err := p.store.Upsert(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("upsert failed, checkpoint withheld",
			"error", err,
			"station_code", rec.StationCode,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		p.metrics.StoreFailures.Inc()
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.RecordsUpserted.Inc()
	p.commitCheckpoint(ctx, msg)
	p.metrics.ProcessDuration.Observe(p.clock.Since(start).Seconds())
	return true
}

// mapInbound decodes the payload and maps it to a canonical record.
func mapInbound(msg domain.InboundMessage) (domain.StationStatusRecord, error) {
	decoded, err := domain.DecodeMessage(msg.Value)
	if err != nil {
		return domain.StationStatusRecord{}, err
	}
	return domain.MapMessage(decoded)
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitCheckpoint advances the stream checkpoint for a stored message. The
// write already succeeded, so a failed commit is only logged: redelivery
// repeats an idempotent upsert.
func (p *Pipeline) commitCheckpoint(ctx context.Context, msg domain.InboundMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit checkpoint failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
