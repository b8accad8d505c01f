package engine

import (
	"context"
	"log/slog"

	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/stats"
)

// Exclusion reasons, one per stage.
const (
	reasonMetadata = "It has unique size, uid, gid, or mode."
	reasonPrefix   = "It has a unique prefix."
	reasonHash     = "It has a unique hash."
	reasonContents = "It has unique contents."
)

// cascade narrows representatives down to equal-content groups, cheapest
// key first: metadata, 64-byte prefix, full digest, then (paranoid only) a
// byte-exact compare. Each metadata group is finished before the next starts.
type cascade struct {
	reader   contentReader
	digest   func(path string) (HashKey, error)
	paranoid bool
	tracker  *stats.Tracker
	emit     *emitter
	log      *slog.Logger
	replacer *replacer
}

func (c *cascade) run(ctx context.Context, files []*FileRecord) error {
	for _, group := range refine(files, c.metadataKey) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.byMetadata(group)
	}
	return ctx.Err()
}

func (c *cascade) byMetadata(group []*FileRecord) {
	if c.excludeIfUnique(group, reasonMetadata) || c.compareIfPair(group) {
		return
	}
	for _, g := range refine(group, c.prefixKey) {
		if c.excludeIfUnique(g, reasonPrefix) || c.compareIfPair(g) {
			continue
		}
		c.byHash(g)
	}
}

func (c *cascade) byHash(group []*FileRecord) {
	for _, g := range refine(group, c.hashKey) {
		if c.excludeIfUnique(g, reasonHash) {
			continue
		}
		if c.paranoid {
			c.byContent(g)
			continue
		}
		c.replacer.dedup(g)
	}
}

// byContent splits group into byte-equal classes and links each class.
func (c *cascade) byContent(group []*FileRecord) {
	for _, g := range c.partition(group) {
		if c.excludeIfUnique(g, reasonContents) {
			continue
		}
		c.replacer.dedup(g)
	}
}

// compareIfPair settles a two-member group with a direct compare, which
// reads no more than hashing both would.
func (c *cascade) compareIfPair(group []*FileRecord) bool {
	if len(group) != 2 {
		return false
	}
	c.byContent(group)
	return true
}

func (c *cascade) excludeIfUnique(group []*FileRecord, reason string) bool {
	if len(group) != 1 {
		return false
	}
	c.tracker.AddProcessed(1)
	c.emit.send(event.Event{Type: event.FileExcluded, Path: group[0].Path, Reason: reason})
	return true
}

// partition returns the maximal byte-equal classes of group. The first
// remaining file is the pivot of each class. A file that cannot be compared
// with the pivot stays in the remaining set.
func (c *cascade) partition(group []*FileRecord) [][]*FileRecord {
	var out [][]*FileRecord
	remaining := group
	for len(remaining) > 0 {
		pivot := remaining[0]
		class := []*FileRecord{pivot}
		var rest []*FileRecord
		for _, other := range remaining[1:] {
			same, err := c.reader.sameContent(pivot.Path, other.Path)
			if err != nil {
				c.log.Warn("failed to compare files",
					"path", pivot.Path, "other", other.Path, "error", err)
			}
			if same {
				class = append(class, other)
			} else {
				rest = append(rest, other)
			}
		}
		out = append(out, class)
		remaining = rest
	}
	return out
}

func (c *cascade) metadataKey(r *FileRecord) (MetadataKey, bool) {
	m, err := r.Metadata()
	if err != nil {
		c.drop(r, "failed to fetch metadata", err)
		return MetadataKey{}, false
	}
	return m.Key(), true
}

func (c *cascade) prefixKey(r *FileRecord) (PrefixKey, bool) {
	p, err := c.reader.readPrefix(r.Path)
	if err != nil {
		c.drop(r, "failed to read prefix", err)
		return "", false
	}
	return p, true
}

func (c *cascade) hashKey(r *FileRecord) (HashKey, bool) {
	h, err := c.digest(r.Path)
	if err != nil {
		c.drop(r, "failed to hash file", err)
		return HashKey{}, false
	}
	return h, true
}

// drop takes r out of the run after an I/O error. It counts as processed.
func (c *cascade) drop(r *FileRecord, msg string, err error) {
	c.tracker.AddProcessed(1)
	c.tracker.AddFilesDropped(1)
	c.log.Warn(msg, "path", r.Path, "error", err)
	c.emit.send(event.Event{Type: event.FileDropped, Path: r.Path, Error: err})
}
