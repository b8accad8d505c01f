package stats

import (
	"fmt"
	"time"
)

// Tracker accumulates progress for a single dedup run. It is owned by the
// engine and mutated from one goroutine only; readers get a Snapshot.
type Tracker struct {
	total        int64
	processed    int64
	bytesDeduped int64
	linksCreated int64
	linkFailures int64
	filesDropped int64
	walkErrors   int64
	dryRun       bool
	startTime    time.Time
}

// NewTracker creates a Tracker with startTime set to now.
func NewTracker(dryRun bool) *Tracker {
	return &Tracker{dryRun: dryRun, startTime: time.Now()}
}

// SetTotal records the number of inode groups found by discovery.
func (t *Tracker) SetTotal(n int64) { t.total = n }

func (t *Tracker) AddProcessed(n int64)    { t.processed += n }
func (t *Tracker) AddBytesDeduped(n int64) { t.bytesDeduped += n }
func (t *Tracker) AddLinksCreated(n int64) { t.linksCreated += n }
func (t *Tracker) AddLinkFailures(n int64) { t.linkFailures += n }
func (t *Tracker) AddFilesDropped(n int64) { t.filesDropped += n }
func (t *Tracker) AddWalkErrors(n int64)   { t.walkErrors += n }

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	Total        int64
	Processed    int64
	BytesDeduped int64
	LinksCreated int64
	LinkFailures int64
	FilesDropped int64
	WalkErrors   int64
	DryRun       bool
	Elapsed      time.Duration
}

// Snapshot returns a copy of all counters.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Total:        t.total,
		Processed:    t.processed,
		BytesDeduped: t.bytesDeduped,
		LinksCreated: t.linksCreated,
		LinkFailures: t.linkFailures,
		FilesDropped: t.filesDropped,
		WalkErrors:   t.walkErrors,
		DryRun:       t.dryRun,
		Elapsed:      time.Since(t.startTime),
	}
}

// String renders the status prefix used on every log line.
func (t *Tracker) String() string {
	return t.Snapshot().String()
}

// Percent returns processed/total as a percentage. An empty run is complete.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// String renders the status prefix, e.g. "42.00%; dry run; 1024 bytes deduped".
func (s Snapshot) String() string {
	dry := ""
	if s.DryRun {
		dry = "; dry run"
	}
	return fmt.Sprintf("%.2f%%%s; %d bytes deduped", s.Percent(), dry, s.BytesDeduped)
}
