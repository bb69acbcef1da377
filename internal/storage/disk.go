package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DatabaseSize returns the bytes used by a SQLite database at path, including its
// -wal and -shm side files. An in-memory database reports 0.
func DatabaseSize(path string) (int64, error) {
	if path == "" || path == ":memory:" {
		return 0, nil
	}
	return usage(path, path+"-wal", path+"-shm")
}

// usage sums the sizes of files and directory trees. Missing paths count as 0.
func usage(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
