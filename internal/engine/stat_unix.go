//go:build unix

package engine

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// lstatMetadata fetches metadata for path without following symlinks. Only
// regular files are accepted; anything else was swapped in after discovery.
func lstatMetadata(path string) (Metadata, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Metadata{}, fmt.Errorf("lstat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return Metadata{}, fmt.Errorf("lstat %s: %w", path, errNotRegular)
	}
	return metadataFromStat(&st), nil
}

// Field widths differ per platform (dev_t is int32 on darwin, nlink_t is
// uint16 there and uint32 on linux/arm64), hence the explicit conversions.
//
//nolint:gosec,unconvert // G115: stat fields are non-negative
func metadataFromStat(st *unix.Stat_t) Metadata {
	return Metadata{
		ID:    DevIno{Dev: uint64(st.Dev), Ino: uint64(st.Ino)},
		Size:  int64(st.Size),
		Nlink: uint64(st.Nlink),
		Mode:  uint32(st.Mode),
		UID:   st.Uid,
		GID:   st.Gid,
	}
}

var errNotRegular = errors.New("not a regular file")
