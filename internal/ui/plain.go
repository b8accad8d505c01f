package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

// plainPresenter writes one line per exclusion and per link to w. Without a
// TTY the output is plain text, one record per line.
type plainPresenter struct {
	w       io.Writer
	paint   painter
	last    stats.Snapshot
	planned int64
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	for ev := range events {
		p.last = ev.Progress
		if ev.Type == event.HardlinkPlanned {
			p.planned++
		}
		if line, ok := p.format(ev); ok {
			fmt.Fprintln(p.w, line)
		}
	}
	return nil
}

// format renders ev as an output line. Failures and dropped files have no
// line here; they are reported as warnings on the logger.
func (p *plainPresenter) format(ev event.Event) (string, bool) {
	prefix := p.paint.paint(stylePrefix, "["+ev.Progress.String()+"]")
	switch ev.Type {
	case event.ScanComplete:
		return fmt.Sprintf("Processing %d files.", ev.Total), true
	case event.FileExcluded:
		return fmt.Sprintf("%s %s %q from deduplication. %s",
			prefix, p.paint.paint(styleExcluded, "Excluding"), ev.Path, ev.Reason), true
	case event.HardlinkCreated:
		return fmt.Sprintf("%s %s %q to %q.",
			prefix, p.paint.paint(styleLinked, "Hardlinked"), ev.Original, ev.Path), true
	case event.HardlinkPlanned:
		return fmt.Sprintf("%s %s %q to %q.",
			prefix, p.paint.paint(styleLinked, "Would hardlink"), ev.Original, ev.Path), true
	case event.RunComplete:
		return fmt.Sprintf("Estimated saved bytes: %d.", ev.Progress.BytesDeduped), true
	default:
		return "", false
	}
}

func (p *plainPresenter) Summary() string {
	return p.paint.paint(styleSummary, completionSummary(p.last, p.planned))
}
