package ui

import (
	"fmt"

	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 1,024  linked 37  saved 1.2 MB  time 3s  errors 0
// A dry run reports planned links and the estimated saving instead.
func completionSummary(snap stats.Snapshot, planned int64) string {
	icon := "✓"
	errs := snap.LinkFailures + snap.FilesDropped
	if errs > 0 {
		icon = "✗"
	}

	linkLabel, saveLabel, links := "linked", "saved", snap.LinksCreated
	if snap.DryRun {
		linkLabel, saveLabel, links = "would link", "would save", planned
	}

	return fmt.Sprintf("done %s  files %s  %s %s  %s %s  time %s  errors %d",
		icon,
		FormatCount(snap.Processed),
		linkLabel, FormatCount(links),
		saveLabel, FormatBytes(snap.BytesDeduped),
		FormatDuration(snap.Elapsed),
		errs,
	)
}
