package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/filter"
	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

// Config describes a dedup run.
type Config struct {
	Paths    []string
	DryRun   bool
	Paranoid bool
	Hash     HashAlgorithm // empty selects SHA256
	Filter   *filter.Set   // nil keeps every regular file
	BWLimit  int64         // content read bytes/sec, 0 = unlimited

	// Events receives every event in program order. Sends block, so the
	// caller must drain it until Run returns. Nil disables events.
	Events chan<- event.Event
	Logger *slog.Logger
}

// Result is the outcome of a dedup run.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// Run discovers every regular file under cfg.Paths and replaces duplicates
// with hardlinks, blocking until complete. Per-file failures are logged and
// skipped; Result.Err is only set when ctx is cancelled.
func Run(ctx context.Context, cfg Config) Result {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tmps := &tmpRegistry{}
	defer func() {
		if _, failed := tmps.cleanup(); len(failed) > 0 {
			log.Warn("failed to remove temporary hardlinks", "paths", failed)
		}
	}()
	algo := cfg.Hash
	if algo == "" {
		algo = SHA256
	}

	tracker := stats.NewTracker(cfg.DryRun)
	emit := &emitter{ch: cfg.Events, tracker: tracker}

	disc, err := Discover(ctx, DiscoverConfig{Roots: cfg.Paths, Filter: cfg.Filter, Logger: log})
	tracker.SetTotal(int64(disc.Index.Len()))
	tracker.AddWalkErrors(disc.WalkErrors)
	if err != nil {
		emit.send(event.Event{Type: event.RunComplete})
		return Result{Stats: tracker.Snapshot(), Err: err}
	}
	emit.send(event.Event{Type: event.ScanComplete, Total: int64(disc.Index.Len())})

	reader := contentReader{ctx: ctx}
	if cfg.BWLimit > 0 {
		reader.limiter = NewBWLimiter(cfg.BWLimit)
	}
	c := &cascade{
		reader:   reader,
		digest:   func(path string) (HashKey, error) { return reader.hashFile(path, algo) },
		paranoid: cfg.Paranoid,
		tracker:  tracker,
		emit:     emit,
		log:      log,
		replacer: &replacer{
			index:   disc.Index,
			tmps:    tmps,
			dryRun:  cfg.DryRun,
			tracker: tracker,
			emit:    emit,
			log:     log,
		},
	}
	err = c.run(ctx, disc.Index.Representatives())

	emit.send(event.Event{Type: event.RunComplete})
	return Result{Stats: tracker.Snapshot(), Err: err}
}

// emitter stamps events with the time and current progress before sending.
type emitter struct {
	ch      chan<- event.Event
	tracker *stats.Tracker
}

func (e *emitter) send(ev event.Event) {
	if e.ch == nil {
		return
	}
	ev.Timestamp = time.Now()
	ev.Progress = e.tracker.Snapshot()
	e.ch <- ev
}
