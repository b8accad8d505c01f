package engine

import "fmt"

// DevIno uniquely identifies an inode. Inode numbers are only unique per
// device, so both halves are needed to detect existing hardlinks.
type DevIno struct {
	Dev uint64
	Ino uint64
}

func (d DevIno) String() string {
	return fmt.Sprintf("%d:%d", d.Dev, d.Ino)
}

// Metadata is the subset of lstat(2) the cascade groups on.
type Metadata struct {
	ID    DevIno
	Size  int64
	Nlink uint64
	Mode  uint32 // full st_mode, type and permission bits
	UID   uint32
	GID   uint32
}

// MetadataKey is the first-stage grouping key. Files that differ in any
// field are never linked together: a hardlink would force one of them to
// take on the other's ownership or permissions.
type MetadataKey struct {
	Size int64
	Dev  uint64
	Mode uint32
	UID  uint32
	GID  uint32
}

// Key returns the metadata grouping key for m.
func (m Metadata) Key() MetadataKey {
	return MetadataKey{
		Size: m.Size,
		Dev:  m.ID.Dev,
		Mode: m.Mode,
		UID:  m.UID,
		GID:  m.GID,
	}
}

// FileRecord is the representative path of one discovered inode. Metadata is
// fetched on first use and cached for the rest of the run.
type FileRecord struct {
	Path string
	meta *Metadata
}

// Metadata returns the record's metadata, fetching it on first call.
func (r *FileRecord) Metadata() (Metadata, error) {
	if r.meta != nil {
		return *r.meta, nil
	}
	m, err := lstatMetadata(r.Path)
	if err != nil {
		return Metadata{}, err
	}
	r.meta = &m
	return m, nil
}
