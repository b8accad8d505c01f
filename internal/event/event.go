package event

import (
	"time"

	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

// Type identifies the kind of event.
type Type int

const (
	ScanComplete Type = iota + 1
	FileExcluded
	FileDropped
	HardlinkCreated
	HardlinkPlanned
	HardlinkFailed
	RunComplete
)

var typeNames = [...]string{
	ScanComplete:    "ScanComplete",
	FileExcluded:    "FileExcluded",
	FileDropped:     "FileDropped",
	HardlinkCreated: "HardlinkCreated",
	HardlinkPlanned: "HardlinkPlanned",
	HardlinkFailed:  "HardlinkFailed",
	RunComplete:     "RunComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single step of a dedup run.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // excluded file or link target
	Original  string // link source for Hardlink* events
	Reason    string // exclusion reason, ends with a period
	Size      int64
	Total     int64 // inode groups discovered (ScanComplete)
	Progress  stats.Snapshot
	Error     error
}
