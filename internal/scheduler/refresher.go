package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

// ErrRefreshInFlight is returned by Refresh when a fetch is already
// outstanding. The trigger is dropped, never queued.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// Source supplies one market batch per call.
type Source interface {
	FetchMarkets(ctx context.Context) (domain.FetchBatch, error)
}

// Snapshot is the published view of the refresh state. Readers take a
// value copy; the batch inside is never mutated after publication.
type Snapshot struct {
	Batch       domain.FetchBatch   `json:"batch"`
	Summary     domain.BatchSummary `json:"summary"`
	HasBatch    bool                `json:"has_batch"`
	Stale       bool                `json:"stale"` // displayed batch predates the last attempt
	LastError   string              `json:"last_error,omitempty"`
	LastAttempt time.Time           `json:"last_attempt"`
}

// Refresher owns the displayed-batch cell. It is the single writer: a
// successful fetch replaces the cell atomically, a failed fetch leaves
// the previous batch in place and records the error. At most one fetch
// is in flight at any time; concurrent triggers are ignored.
type Refresher struct {
	source   Source
	interval time.Duration
	metrics  *telemetry.Metrics

	fetching atomic.Bool

	mu        sync.RWMutex
	snap      Snapshot
	onRefresh func(Snapshot)
}

// New creates a refresher. The interval defaults to 300s when zero.
func New(source Source, interval time.Duration, metrics *telemetry.Metrics) *Refresher {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	return &Refresher{
		source:   source,
		interval: interval,
		metrics:  metrics,
	}
}

// OnRefresh registers a callback invoked after each successful batch
// swap. Set it before Run; it is used to push refresh notices to
// websocket clients.
func (r *Refresher) OnRefresh(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRefresh = fn
}

// Snapshot returns the current published state.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh performs one fetch-enrich-swap cycle. It returns
// ErrRefreshInFlight without touching the network when another refresh is
// outstanding; both the timer and the manual trigger go through here, so
// the at-most-one-in-flight rule covers them uniformly.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	if !r.fetching.CompareAndSwap(false, true) {
		r.metrics.RefreshSkipped.Inc()
		log.Debug().Msg("Refresh trigger ignored, fetch already in flight")
		return r.Snapshot(), ErrRefreshInFlight
	}
	defer r.fetching.Store(false)

	start := time.Now()
	batch, err := r.source.FetchMarkets(ctx)
	r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		r.metrics.RefreshTotal.WithLabelValues("failure").Inc()

		r.mu.Lock()
		r.snap.LastError = err.Error()
		r.snap.LastAttempt = time.Now().UTC()
		r.snap.Stale = r.snap.HasBatch
		snap := r.snap
		r.mu.Unlock()

		log.Warn().Err(err).Bool("stale_batch_kept", snap.HasBatch).Msg("Refresh failed")
		return snap, err
	}

	enriched := domain.Enrich(batch)
	summary := domain.Summarize(enriched)

	r.mu.Lock()
	r.snap = Snapshot{
		Batch:       enriched,
		Summary:     summary,
		HasBatch:    true,
		LastAttempt: time.Now().UTC(),
	}
	snap := r.snap
	notify := r.onRefresh
	r.mu.Unlock()

	r.metrics.RefreshTotal.WithLabelValues("success").Inc()
	r.metrics.BatchSize.Set(float64(len(enriched.Records)))
	r.metrics.BatchAge.Set(0)

	log.Info().
		Str("batch", enriched.ID).
		Int("records", len(enriched.Records)).
		Dur("took", time.Since(start)).
		Msg("Batch refreshed")

	if notify != nil {
		notify(snap)
	}
	return snap, nil
}

// Run refreshes immediately, then on every interval tick until the
// context is cancelled. Ticks that elapsed while a fetch was outstanding
// are drained, not replayed.
func (r *Refresher) Run(ctx context.Context) error {
	log.Info().Dur("interval", r.interval).Msg("Refresh scheduler starting")

	if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInFlight) {
		log.Warn().Err(err).Msg("Initial refresh failed, will retry on next tick")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Refresh scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			r.metrics.BatchAge.Set(time.Since(r.Snapshot().Batch.FetchedAt).Seconds())
			if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInFlight) {
				continue
			}
			// Drop any tick that fired during a slow fetch.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}
