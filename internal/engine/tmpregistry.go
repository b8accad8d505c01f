package engine

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"sync"
)

// tmpRegistry tracks temporary links that have been created but not yet
// renamed over their target or removed. Each run owns one and cleans it up
// on return, including after cancellation.
type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *tmpRegistry) register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *tmpRegistry) deregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

func (r *tmpRegistry) pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// cleanup removes every registered link. Links that are already gone count
// as removed; links that cannot be removed stay registered.
func (r *tmpRegistry) cleanup() (removed int, failed []string) {
	for _, p := range r.pending() {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed = append(failed, p)
			continue
		}
		r.deregister(p)
		removed++
	}
	return removed, failed
}
