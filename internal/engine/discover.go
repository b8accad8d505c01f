package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/bamsammich/hardlink-dedup/internal/filter"
)

// InodeIndex maps every discovered inode to all of its discovered paths. It
// is built once by Discover and read-only afterwards.
type InodeIndex struct {
	paths map[DevIno][]string
	order []DevIno // first-discovery order
}

func newInodeIndex() *InodeIndex {
	return &InodeIndex{paths: make(map[DevIno][]string)}
}

func (x *InodeIndex) add(id DevIno, path string) {
	existing, ok := x.paths[id]
	if !ok {
		x.order = append(x.order, id)
	}
	if slices.Contains(existing, path) {
		return
	}
	x.paths[id] = append(existing, path)
}

// Len returns the number of distinct inodes.
func (x *InodeIndex) Len() int {
	return len(x.order)
}

// Paths returns the sorted paths linking to id, or nil if id was not
// discovered. The returned slice must not be modified.
func (x *InodeIndex) Paths(id DevIno) []string {
	return x.paths[id]
}

// Representatives returns one record per inode, in first-discovery order.
// Each record's path is the lexicographically smallest path of its inode.
func (x *InodeIndex) Representatives() []*FileRecord {
	out := make([]*FileRecord, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, &FileRecord{Path: x.paths[id][0]})
	}
	return out
}

func (x *InodeIndex) finish() {
	for _, paths := range x.paths {
		slices.Sort(paths)
	}
}

// DiscoverConfig controls a discovery walk.
type DiscoverConfig struct {
	Roots  []string
	Filter *filter.Set
	Logger *slog.Logger
}

// DiscoverResult is the outcome of a discovery walk.
type DiscoverResult struct {
	Index *InodeIndex
	// WalkErrors counts entries that could not be read or stat'ed. They are
	// skipped silently.
	WalkErrors int64
}

// Discover walks each root in order and indexes every regular file by inode.
// Symlinks are never followed and non-regular files are ignored. Unreadable
// entries are skipped; only context cancellation aborts the walk.
func Discover(ctx context.Context, cfg DiscoverConfig) (DiscoverResult, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	res := DiscoverResult{Index: newInodeIndex()}

	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				res.WalkErrors++
				log.Debug("skipping unreadable entry", "path", path, "error", err)
				return nil
			}

			rel := relPath(root, path, d)
			if d.IsDir() {
				if rel != "" && !cfg.Filter.KeepDir(rel) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			meta, err := lstatMetadata(path)
			if err != nil {
				res.WalkErrors++
				log.Debug("skipping unreadable entry", "path", path, "error", err)
				return nil
			}
			if !cfg.Filter.KeepFile(rel, meta.Size) {
				return nil
			}
			res.Index.add(meta.ID, path)
			return nil
		})
		if err != nil {
			return res, err
		}
	}

	res.Index.finish()
	return res, nil
}

// relPath returns path relative to root with forward slashes. A root that is
// itself a file is matched by its base name; the root directory maps to "".
func relPath(root, path string, d fs.DirEntry) string {
	if path == root {
		if d.IsDir() {
			return ""
		}
		return d.Name()
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
