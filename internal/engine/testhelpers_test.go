package engine_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/hardlink-dedup/internal/engine"
	"github.com/bamsammich/hardlink-dedup/internal/event"
)

// writeFile creates root/rel (and its parents) with content and mode 0644.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))
	return path
}

// inode returns the inode number of path without following symlinks.
func inode(t *testing.T, path string) uint64 {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	return uint64(st.Ino) //nolint:unconvert // Ino width differs per platform
}

// collectEvents creates a buffered event channel that records all events.
// Returns the channel for engine.Config and a function to retrieve collected
// events. The getter closes the channel and waits for the drain goroutine,
// so it is safe to read the slice. It may be called at most once. If the
// getter is never called, t.Cleanup closes the channel on test exit.
func collectEvents(t *testing.T) (chan<- event.Event, func() []event.Event) {
	t.Helper()
	ch := make(chan event.Event, 64)
	var collected []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			collected = append(collected, ev)
		}
	}()
	var once sync.Once
	drain := func() {
		once.Do(func() { close(ch) })
		<-done
	}
	t.Cleanup(drain)
	return ch, func() []event.Event {
		drain()
		return collected
	}
}

// runDedup runs the engine over paths and returns the result and its events.
func runDedup(t *testing.T, cfg engine.Config) (engine.Result, []event.Event) {
	t.Helper()
	ch, events := collectEvents(t)
	cfg.Events = ch
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	res := engine.Run(context.Background(), cfg)
	return res, events()
}

// findTmpFiles returns any temporary links left under root.
func findTmpFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".hardlink-dedup-") {
			found = append(found, path)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}

// ofType filters events by type.
func ofType(events []event.Event, typ event.Type) []event.Event {
	var out []event.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
