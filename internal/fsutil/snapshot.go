package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
)

// Snapshot is the set of entry names present in a directory at one instant.
type Snapshot map[string]struct{}

// TakeSnapshot records the entries of dir. A missing directory yields an
// empty snapshot so that files created later are still reported as new.
func TakeSnapshot(dir string) (Snapshot, error) {
	snap := Snapshot{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snap, nil
		}
		return nil, err
	}
	for _, e := range entries {
		snap[e.Name()] = struct{}{}
	}
	return snap, nil
}

// Has reports whether name was present when the snapshot was taken.
func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// NewEntries returns the sorted names present in dir now but absent from s.
func (s Snapshot) NewEntries(dir string) ([]string, error) {
	now, err := TakeSnapshot(dir)
	if err != nil {
		return nil, err
	}
	var added []string
	for name := range now {
		if !s.Has(name) {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	return added, nil
}

// Tail reads at most maxBytes from the end of the file at path. A missing
// file returns no data and no error.
func Tail(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := int64(0)
	if maxBytes > 0 && info.Size() > maxBytes {
		offset = info.Size() - maxBytes
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}
