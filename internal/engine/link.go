package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

const (
	tmpPrefix = ".hardlink-dedup-"
	tmpSuffix = ".tmp"
)

// tmpLinkPath returns a fresh temporary sibling of target.
func tmpLinkPath(target string) string {
	return filepath.Join(filepath.Dir(target), tmpPrefix+uuid.NewString()+tmpSuffix)
}

// ReplaceError reports a failed rename whose temporary link could not be
// removed afterwards. The link stays registered for the end-of-run cleanup.
type ReplaceError struct {
	Tmp        string
	RenameErr  error
	CleanupErr error
}

func (e *ReplaceError) Error() string {
	return fmt.Sprintf("%v; also failed to delete temporary link %s: %v", e.RenameErr, e.Tmp, e.CleanupErr)
}

func (e *ReplaceError) Unwrap() []error {
	return []error{e.RenameErr, e.CleanupErr}
}

// replaceWithHardlink atomically replaces target with a hardlink to original.
// A temporary link is created next to target and renamed over it, so target
// always holds either its old or its new content. On error target is left
// as it was.
func replaceWithHardlink(original, target string, tmps *tmpRegistry) error {
	tmp := tmpLinkPath(target)
	tmps.register(tmp)

	if err := os.Link(original, tmp); err != nil {
		tmps.deregister(tmp)
		return fmt.Errorf("create temporary hardlink: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		renameErr := fmt.Errorf("replace %s with temporary hardlink: %w", target, err)
		if rmErr := os.Remove(tmp); rmErr != nil {
			return &ReplaceError{Tmp: tmp, RenameErr: renameErr, CleanupErr: rmErr}
		}
		tmps.deregister(tmp)
		return renameErr
	}

	// rename(2) succeeds without doing anything when both names already
	// link the same inode, which leaves tmp behind.
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove temporary hardlink: %w", err)
	}
	tmps.deregister(tmp)
	return nil
}

// replacer links every member of an equal-content group to its first member.
type replacer struct {
	index   *InodeIndex
	tmps    *tmpRegistry
	dryRun  bool
	tracker *stats.Tracker
	emit    *emitter
	log     *slog.Logger
}

// dedup replaces every path of every other member of group with a hardlink
// to group[0].
func (r *replacer) dedup(group []*FileRecord) {
	original := group[0]
	r.tracker.AddProcessed(1)
	origMeta, err := original.Metadata()
	if err != nil {
		r.tracker.AddProcessed(int64(len(group) - 1))
		r.drop(original.Path, err)
		return
	}

	for _, member := range group[1:] {
		r.tracker.AddProcessed(1)

		// Fetched fresh: the inode may have changed since grouping.
		meta, err := lstatMetadata(member.Path)
		if err != nil {
			r.drop(member.Path, err)
			continue
		}
		if meta.ID == origMeta.ID {
			continue
		}
		targets := r.index.Paths(meta.ID)
		if len(targets) == 0 {
			r.drop(member.Path, fmt.Errorf("%s: inode %s changed since discovery", member.Path, meta.ID))
			continue
		}

		if r.linkAll(original.Path, targets) || r.dryRun {
			r.tracker.AddBytesDeduped(meta.Size)
		}
	}
}

// linkAll relinks each target to original and reports whether all succeeded.
func (r *replacer) linkAll(original string, targets []string) bool {
	ok := true
	for _, target := range targets {
		if r.dryRun {
			r.emit.send(event.Event{Type: event.HardlinkPlanned, Original: original, Path: target})
			continue
		}
		if err := replaceWithHardlink(original, target, r.tmps); err != nil {
			ok = false
			r.tracker.AddLinkFailures(1)
			r.log.Warn("failed to hardlink",
				"original", original, "target", target, "error", err)
			r.emit.send(event.Event{
				Type: event.HardlinkFailed, Original: original, Path: target, Error: err,
			})
			continue
		}
		r.tracker.AddLinksCreated(1)
		r.emit.send(event.Event{Type: event.HardlinkCreated, Original: original, Path: target})
	}
	return ok
}

func (r *replacer) drop(path string, err error) {
	r.tracker.AddFilesDropped(1)
	r.log.Warn("skipping file", "path", path, "error", err)
	r.emit.send(event.Event{Type: event.FileDropped, Path: path, Error: err})
}
