package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/pkg/types"
)

// ArchiveFunc receives each closed window exactly once.
type ArchiveFunc func(ctx context.Context, rec *types.ArchiveRecord)

// DailyFunc receives the recomputed daily summary after every archive record.
// Deliveries are upserts keyed by (station, date).
type DailyFunc func(ctx context.Context, sum *types.DailySummary)

// Config sizes the engine's windows.
type Config struct {
	// Interval is the archive window length.
	Interval time.Duration
	// Grace delays timer-triggered closes past the window end, giving
	// in-flight observations time to land before the window freezes.
	Grace time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Grace <= 0 {
		c.Grace = time.Second
	}
	return c
}

// Engine folds observations into per-station interval windows and emits an
// ArchiveRecord when each window closes. A window closes either when an
// observation lands past its end (boundary), when the supervisor finds it
// overdue (timer), or on shutdown (force). The mutex serializes the consume
// and timer paths; emission happens outside the lock.
type Engine struct {
	cfg     Config
	logger  zerolog.Logger
	archive ArchiveFunc
	daily   DailyFunc

	mu      sync.Mutex
	windows map[string]*window
	// closedThrough marks the end of each station's newest closed window.
	// Observations older than that are late and dropped.
	closedThrough map[string]time.Time
	rain          map[string]*rainState
	days          *dayStore
}

func NewEngine(cfg Config, logger zerolog.Logger, archive ArchiveFunc, daily DailyFunc) *Engine {
	return &Engine{
		cfg:           cfg.withDefaults(),
		logger:        logger.With().Str("component", "aggregate").Logger(),
		archive:       archive,
		daily:         daily,
		windows:       make(map[string]*window),
		closedThrough: make(map[string]time.Time),
		rain:          make(map[string]*rainState),
		days:          newDayStore(),
	}
}

func (e *Engine) Name() string { return "aggregate" }

// Consume folds one observation into its station's open window, closing and
// emitting the previous window first when the observation starts a new one.
func (e *Engine) Consume(ctx context.Context, obs *types.Observation) error {
	e.mu.Lock()

	ts := obs.Timestamp.UTC()
	station := obs.StationID
	if cut, ok := e.closedThrough[station]; ok && ts.Before(cut) {
		e.mu.Unlock()
		metrics.LateObservationsTotal.Inc()
		e.logger.Debug().
			Str("station", station).
			Time("timestamp", ts).
			Time("closed_through", cut).
			Msg("late observation dropped")
		return nil
	}

	start := ts.Truncate(e.cfg.Interval)
	w := e.windows[station]
	if w != nil && start.Before(w.start) {
		// Older than the open window but not behind closedThrough: the
		// open window started mid-interval. Still late, and dropped before
		// it can touch the rain baseline.
		e.mu.Unlock()
		metrics.LateObservationsTotal.Inc()
		return nil
	}

	e.resolveRain(obs)

	var closed []*types.ArchiveRecord
	switch {
	case w == nil:
		w = newWindow(start)
		e.windows[station] = w
	case start.After(w.start):
		closed = append(closed, e.closeLocked(station, w, "boundary"))
		w = newWindow(start)
		e.windows[station] = w
	}
	w.add(obs)

	summaries := e.summariesLocked(closed)
	e.mu.Unlock()

	e.emit(ctx, closed, summaries)
	return nil
}

// resolveRain turns the observation's cumulative counters into deltas.
// Called with the lock held.
func (e *Engine) resolveRain(obs *types.Observation) {
	rs := e.rain[obs.StationID]
	if rs == nil {
		rs = &rainState{}
		e.rain[obs.StationID] = rs
	}
	if obs.RainCum != nil {
		if d, ok := rs.deltaCum(*obs.RainCum); ok && obs.Rain == nil {
			obs.Rain = types.Float(d)
		}
	}
	if obs.DayRainCum != nil {
		if d, ok := rs.deltaDayCum(*obs.DayRainCum); ok {
			obs.SetMetric(metricDayRain, d)
		}
	}
}

// closeLocked freezes one window into a record and files it with the day
// store. Called with the lock held; the record is emitted by the caller
// after unlock.
func (e *Engine) closeLocked(station string, w *window, trigger string) *types.ArchiveRecord {
	rec := w.record(station, e.cfg.Interval)
	delete(e.windows, station)
	e.closedThrough[station] = rec.WindowEnd()
	e.days.add(rec)
	e.days.prune(rec.WindowStart)
	metrics.WindowsClosedTotal.WithLabelValues(trigger).Inc()
	e.logger.Debug().
		Str("station", station).
		Time("window_start", rec.WindowStart).
		Str("trigger", trigger).
		Int("samples", w.samples).
		Msg("window closed")
	return rec
}

// summariesLocked recomputes the daily summary for every day touched by the
// just-closed records. Called with the lock held.
func (e *Engine) summariesLocked(closed []*types.ArchiveRecord) []*types.DailySummary {
	if len(closed) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(closed))
	var out []*types.DailySummary
	for _, rec := range closed {
		date := dateOf(rec.WindowStart)
		key := rec.StationID + "|" + date
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if sum := e.days.summary(rec.StationID, date); sum != nil {
			out = append(out, sum)
		}
	}
	return out
}

func (e *Engine) emit(ctx context.Context, records []*types.ArchiveRecord, summaries []*types.DailySummary) {
	if e.archive != nil {
		for _, rec := range records {
			e.archive(ctx, rec)
		}
	}
	if e.daily != nil {
		for _, sum := range summaries {
			e.daily(ctx, sum)
		}
	}
}

// CloseDue closes every window whose end plus grace has passed. The worker
// supervisor calls this on a timer so idle stations still archive.
func (e *Engine) CloseDue(ctx context.Context, now time.Time) int {
	e.mu.Lock()
	var closed []*types.ArchiveRecord
	for station, w := range e.windows {
		deadline := w.start.Add(e.cfg.Interval).Add(e.cfg.Grace)
		if !now.Before(deadline) {
			closed = append(closed, e.closeLocked(station, w, "timer"))
		}
	}
	summaries := e.summariesLocked(closed)
	e.mu.Unlock()

	e.emit(ctx, closed, summaries)
	return len(closed)
}

// Flush closes every open window regardless of deadline. Shutdown calls this
// after the pipeline drains so partial windows are archived, not lost.
func (e *Engine) Flush(ctx context.Context) int {
	e.mu.Lock()
	var closed []*types.ArchiveRecord
	for station, w := range e.windows {
		closed = append(closed, e.closeLocked(station, w, "force"))
	}
	summaries := e.summariesLocked(closed)
	e.mu.Unlock()

	e.emit(ctx, closed, summaries)
	return len(closed)
}
