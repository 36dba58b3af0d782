// Package backend abstracts the storage primitives the commit-log store is
// built on. Paths are slash-separated and relative to the backend root.
package backend

import (
	"io"
	"path"
	"time"
)

// Info describes one directory entry as reported by the backend.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the capability surface a backend must provide.
//
// Rename must be atomic and conditional: when dst already exists it returns
// (false, nil) and leaves both paths untouched. A backend whose rename
// silently replaces the destination must not be used for create-if-absent
// writes — the entire create-once guarantee rests on this precondition.
//
// Listing consistency is whatever the backend provides; a file published
// concurrently with List may or may not appear in the result.
type FileSystem interface {
	// Exists reports whether path names a file or directory.
	Exists(path string) (bool, error)

	// OpenRead opens path for reading. The error wraps fs.ErrNotExist if
	// the path does not exist.
	OpenRead(path string) (io.ReadCloser, error)

	// OpenWrite opens path for writing. With truncate set an existing file
	// is replaced; without it the call fails (wrapping fs.ErrExist) if the
	// path already exists. The parent directory must exist either way.
	OpenWrite(path string, truncate bool) (io.WriteCloser, error)

	// List returns the entries of dir. The error wraps fs.ErrNotExist if
	// dir is absent. No order is guaranteed.
	List(dir string) ([]Info, error)

	// Rename atomically moves src to dst. It returns (false, nil) when dst
	// already exists. src must name an existing file.
	Rename(src, dst string) (bool, error)

	// Delete removes path, recursively if asked. It reports whether
	// anything was removed; a missing path is (false, nil), not an error.
	Delete(path string, recursive bool) (bool, error)

	// Mkdir creates dir and any missing ancestors.
	Mkdir(dir string) error
}

// Parent returns the directory portion of p, "" for a root-level name.
func Parent(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// Base returns the final element of p.
func Base(p string) string {
	return path.Base(p)
}

// Join joins a directory and a name, tolerating the "" root directory.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
