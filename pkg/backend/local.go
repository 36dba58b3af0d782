package backend

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local is a FileSystem over a directory on local disk.
//
// os.Rename replaces an existing destination on POSIX, so Rename is
// implemented as hard-link-then-unlink: link fails with EEXIST when the
// destination is present, which is exactly the conditional publish the
// commit-log writer needs.
type Local struct {
	root string
}

// NewLocal returns a Local rooted at dir. The root must already exist.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the directory the backend is rooted at.
func (l *Local) Root() string { return l.root }

func (l *Local) resolve(p string) string {
	return filepath.Join(l.root, filepath.FromSlash(p))
}

func (l *Local) Exists(p string) (bool, error) {
	_, err := os.Stat(l.resolve(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", p)
}

func (l *Local) OpenRead(p string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(p))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", p)
	}
	return f, nil
}

func (l *Local) OpenWrite(p string, truncate bool) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(l.resolve(p), flags, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", p)
	}
	return f, nil
}

func (l *Local) List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(l.resolve(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			// entry vanished between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s/%s", dir, e.Name())
		}
		out = append(out, Info{
			Name:    e.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return out, nil
}

func (l *Local) Rename(src, dst string) (bool, error) {
	err := os.Link(l.resolve(src), l.resolve(dst))
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "rename %s -> %s", src, dst)
	}
	if err := os.Remove(l.resolve(src)); err != nil {
		return true, errors.Wrapf(err, "unlink %s after rename", src)
	}
	return true, nil
}

func (l *Local) Delete(p string, recursive bool) (bool, error) {
	abs := l.resolve(p)
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	var err error
	if recursive {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "delete %s", p)
	}
	return true, nil
}

func (l *Local) Mkdir(dir string) error {
	if err := os.MkdirAll(l.resolve(dir), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	return nil
}
