package engine_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/hardlink-dedup/internal/engine"
	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/filter"
)

func TestRun_DifferentSizesStaySeparate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "contents 1")
	b := writeFile(t, root, "b", "smaller 2")

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.NotEqual(t, inode(t, a), inode(t, b))
	excluded := ofType(events, event.FileExcluded)
	require.Len(t, excluded, 2)
	assert.Equal(t, "It has unique size, uid, gid, or mode.", excluded[0].Reason)
	assert.Equal(t, int64(2), res.Stats.Processed)
	assert.InDelta(t, 100.0, res.Stats.Percent(), 0.001)
}

func TestRun_TwoIdenticalFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.Equal(t, int64(len("same contents")), res.Stats.BytesDeduped)
	assert.Equal(t, int64(1), res.Stats.LinksCreated)

	linked := ofType(events, event.HardlinkCreated)
	require.Len(t, linked, 1)
	assert.Equal(t, a, linked[0].Original)
	assert.Equal(t, b, linked[0].Path)
	assert.Empty(t, findTmpFiles(t, root))
}

func TestRun_ThreeIdenticalFilesUnderSharedParent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, filepath.Join("dir", "a"), "same contents")
	b := writeFile(t, root, filepath.Join("dir", "b"), "same contents")
	c := writeFile(t, root, filepath.Join("dir", "c"), "same contents")

	res, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.Equal(t, inode(t, a), inode(t, c))
	assert.Equal(t, int64(2*len("same contents")), res.Stats.BytesDeduped)
	assert.Equal(t, res.Stats.Total, res.Stats.Processed)
}

func TestRun_DifferentPrefixExcluded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same size, same prefix, same content")
	b := writeFile(t, root, "b", "same size, same prefix, same content")
	c := writeFile(t, root, "c", "same size, but different prefix 1234")

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.NotEqual(t, inode(t, a), inode(t, c))

	excluded := ofType(events, event.FileExcluded)
	require.Len(t, excluded, 1)
	assert.Equal(t, c, excluded[0].Path)
	assert.Equal(t, "It has a unique prefix.", excluded[0].Reason)
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	inoA, inoB := inode(t, a), inode(t, b)

	res, events := runDedup(t, engine.Config{Paths: []string{root}, DryRun: true})
	require.NoError(t, res.Err)

	assert.Equal(t, inoA, inode(t, a))
	assert.Equal(t, inoB, inode(t, b))
	assert.NotEqual(t, inode(t, a), inode(t, b))
	assert.Empty(t, findTmpFiles(t, root))

	planned := ofType(events, event.HardlinkPlanned)
	require.Len(t, planned, 1)
	assert.Equal(t, a, planned[0].Original)
	assert.Equal(t, b, planned[0].Path)
	assert.True(t, planned[0].Progress.DryRun)
	assert.Empty(t, ofType(events, event.HardlinkCreated))

	assert.Equal(t, int64(len("same contents")), res.Stats.BytesDeduped, "dry run still estimates")
	assert.Zero(t, res.Stats.LinksCreated)
}

func TestRun_DifferentModeNeverLinked(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	require.NoError(t, os.Chmod(b, 0o750))

	res, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.NotEqual(t, inode(t, a), inode(t, b))
	infoA, err := os.Stat(a)
	require.NoError(t, err)
	infoB, err := os.Stat(b)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), infoA.Mode().Perm())
	assert.Equal(t, os.FileMode(0o750), infoB.Mode().Perm())
}

func TestRun_DifferentGroupNeverLinked(t *testing.T) {
	t.Parallel()
	if os.Geteuid() != 0 {
		t.Skip("changing a file's group requires root")
	}

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	require.NoError(t, os.Lchown(b, -1, os.Getgid()+1))

	res, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.NotEqual(t, inode(t, a), inode(t, b))
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, root, name, "same contents")
	}

	first, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, first.Err)
	assert.Equal(t, int64(2), first.Stats.LinksCreated)

	second, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, second.Err)
	assert.Zero(t, second.Stats.LinksCreated)
	assert.Zero(t, second.Stats.BytesDeduped)
	assert.Equal(t, int64(1), second.Stats.Total)
	assert.Len(t, ofType(events, event.FileExcluded), 1)
}

func TestRun_RelinksEveryPathOfReplacedInode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	b2 := filepath.Join(root, "b2")
	require.NoError(t, os.Link(b, b2))

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.Equal(t, inode(t, a), inode(t, b2))
	assert.Len(t, ofType(events, event.HardlinkCreated), 2)
	assert.Equal(t, int64(len("same contents")), res.Stats.BytesDeduped, "counted once per replaced inode")
	assert.Equal(t, int64(2), res.Stats.Total)
}

func TestRun_SymlinksLeftAlone(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(b, link))

	res, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSymlink, info.Mode().Type())
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, b, target)
}

func TestRun_NewlineInFileName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "new\nline", "same contents")
	b := writeFile(t, root, "plain", "same contents")

	res, _ := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
}

func TestRun_FilteredFilesUntouched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	skipped := writeFile(t, root, filepath.Join("cache", "c"), "same contents")
	before := inode(t, skipped)

	fs := filter.New()
	require.NoError(t, fs.Exclude("cache/"))

	res, _ := runDedup(t, engine.Config{Paths: []string{root}, Filter: fs})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.Equal(t, before, inode(t, skipped))
	assert.Equal(t, int64(2), res.Stats.Total)
}

func TestRun_Blake3(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := []string{
		writeFile(t, root, "a", "same contents"),
		writeFile(t, root, "b", "same contents"),
		writeFile(t, root, "c", "same contents"),
		writeFile(t, root, "d", "diff contents"),
	}

	res, _ := runDedup(t, engine.Config{Paths: []string{root}, Hash: engine.BLAKE3})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, paths[0]), inode(t, paths[1]))
	assert.Equal(t, inode(t, paths[0]), inode(t, paths[2]))
	assert.NotEqual(t, inode(t, paths[0]), inode(t, paths[3]))
}

func TestRun_ParanoidLinksIdenticalFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")
	c := writeFile(t, root, "c", "same contents")

	res, _ := runDedup(t, engine.Config{Paths: []string{root}, Paranoid: true, BWLimit: 1 << 20})
	require.NoError(t, res.Err)

	assert.Equal(t, inode(t, a), inode(t, b))
	assert.Equal(t, inode(t, a), inode(t, c))
}

func TestRun_LinkFailureLeavesTargetUntouched(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := t.TempDir()
	a := writeFile(t, root, filepath.Join("1", "a"), "same contents")
	b := writeFile(t, root, filepath.Join("2", "b"), "same contents")
	before := inode(t, b)
	locked := filepath.Dir(b)
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err, "per-file failures are not fatal")

	assert.Equal(t, before, inode(t, b))
	assert.NotEqual(t, inode(t, a), inode(t, b))
	assert.Equal(t, int64(1), res.Stats.LinkFailures)
	assert.Zero(t, res.Stats.BytesDeduped)

	failed := ofType(events, event.HardlinkFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, b, failed[0].Path)
	require.Error(t, failed[0].Error)
	assert.Empty(t, findTmpFiles(t, root))
}

func TestRun_NoPaths(t *testing.T) {
	t.Parallel()

	res, events := runDedup(t, engine.Config{})
	require.NoError(t, res.Err)

	assert.Zero(t, res.Stats.Total)
	assert.Zero(t, res.Stats.Processed)
	assert.InDelta(t, 100.0, res.Stats.Percent(), 0.001)
	require.Len(t, events, 2)
	assert.Equal(t, event.ScanComplete, events[0].Type)
	assert.Equal(t, event.RunComplete, events[1].Type)
}

func TestRun_EventOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a", "same contents")
	writeFile(t, root, "b", "same contents")
	writeFile(t, root, "c", "unique")

	res, events := runDedup(t, engine.Config{Paths: []string{root}})
	require.NoError(t, res.Err)

	require.NotEmpty(t, events)
	assert.Equal(t, event.ScanComplete, events[0].Type)
	assert.Equal(t, int64(3), events[0].Total)
	assert.Equal(t, event.RunComplete, events[len(events)-1].Type)

	var last float64
	for _, ev := range events {
		pct := ev.Progress.Percent()
		if ev.Progress.Total > 0 && ev.Type != event.ScanComplete {
			assert.GreaterOrEqual(t, pct, last, "progress must not go backwards")
			last = pct
		}
	}
	assert.InDelta(t, 100.0, last, 0.001)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a", "same contents")
	b := writeFile(t, root, "b", "same contents")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, collected := collectEvents(t)
	res := engine.Run(ctx, engine.Config{
		Paths:  []string{root},
		Events: ch,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.ErrorIs(t, res.Err, context.Canceled)

	assert.NotEqual(t, inode(t, a), inode(t, b))
	events := collected()
	require.NotEmpty(t, events)
	assert.Equal(t, event.RunComplete, events[len(events)-1].Type)
}
