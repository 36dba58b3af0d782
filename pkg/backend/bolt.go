package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	filesBucket = "files"
	metaBucket  = "meta"
	dirsBucket  = "dirs"
)

type fileMeta struct {
	ModTime time.Time
}

// Bolt is a FileSystem over a bbolt database: full paths are keys, file
// content lives in one bucket and per-file metadata in another. Every
// mutation is a single transaction, so Rename is genuinely atomic and
// conditional — the closest thing to an ideal blob store with a
// conditional put.
type Bolt struct {
	db *bolt.DB
}

// NewBolt wraps db, creating the backing buckets if needed.
func NewBolt(db *bolt.DB) (*Bolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{filesBucket, metaBucket, dirsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buckets")
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Exists(p string) (bool, error) {
	if p == "" {
		return true, nil
	}
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(filesBucket)).Get([]byte(p)) != nil ||
			tx.Bucket([]byte(dirsBucket)).Get([]byte(p)) != nil
		return nil
	})
	return found, err
}

func (b *Bolt) OpenRead(p string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(filesBucket)).Get([]byte(p))
		if v == nil {
			return errors.Wrapf(fs.ErrNotExist, "open %s", p)
		}
		// bolt memory is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// boltWriter buffers all writes in memory; Close commits them in one
// transaction, so a file becomes visible all at once or not at all.
type boltWriter struct {
	b        *Bolt
	path     string
	truncate bool
	buf      bytes.Buffer
	closed   bool
}

func (w *boltWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *boltWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.b.db.Update(func(tx *bolt.Tx) error {
		files := tx.Bucket([]byte(filesBucket))
		if dir := Parent(w.path); dir != "" {
			if tx.Bucket([]byte(dirsBucket)).Get([]byte(dir)) == nil {
				return errors.Wrapf(fs.ErrNotExist, "create %s", w.path)
			}
		}
		if !w.truncate && files.Get([]byte(w.path)) != nil {
			return errors.Wrapf(fs.ErrExist, "create %s", w.path)
		}
		if err := files.Put([]byte(w.path), w.buf.Bytes()); err != nil {
			return err
		}
		raw, _ := json.Marshal(fileMeta{ModTime: time.Now()})
		return tx.Bucket([]byte(metaBucket)).Put([]byte(w.path), raw)
	})
}

func (b *Bolt) OpenWrite(p string, truncate bool) (io.WriteCloser, error) {
	return &boltWriter{b: b, path: p, truncate: truncate}, nil
}

func (b *Bolt) List(dir string) ([]Info, error) {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	var out []Info
	err := b.db.View(func(tx *bolt.Tx) error {
		dirs := tx.Bucket([]byte(dirsBucket))
		if dir != "" && dirs.Get([]byte(dir)) == nil {
			return errors.Wrapf(fs.ErrNotExist, "list %s", dir)
		}
		meta := tx.Bucket([]byte(metaBucket))
		c := tx.Bucket([]byte(filesBucket)).Cursor()
		for k, v := c.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, v = c.Next() {
			rest := string(k[len(prefix):])
			if strings.Contains(rest, "/") {
				continue
			}
			info := Info{Name: rest, Size: int64(len(v))}
			var m fileMeta
			if raw := meta.Get(k); raw != nil && json.Unmarshal(raw, &m) == nil {
				info.ModTime = m.ModTime
			}
			out = append(out, info)
		}
		dc := dirs.Cursor()
		for k, _ := dc.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, _ = dc.Next() {
			rest := string(k[len(prefix):])
			if rest == "" || strings.Contains(rest, "/") {
				continue
			}
			out = append(out, Info{Name: rest, IsDir: true})
		}
		return nil
	})
	return out, err
}

func (b *Bolt) Rename(src, dst string) (bool, error) {
	var renamed bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		files := tx.Bucket([]byte(filesBucket))
		if files.Get([]byte(dst)) != nil {
			return nil
		}
		v := files.Get([]byte(src))
		if v == nil {
			return errors.Wrapf(fs.ErrNotExist, "rename %s", src)
		}
		if err := files.Put([]byte(dst), v); err != nil {
			return err
		}
		if err := files.Delete([]byte(src)); err != nil {
			return err
		}
		meta := tx.Bucket([]byte(metaBucket))
		if raw := meta.Get([]byte(src)); raw != nil {
			if err := meta.Put([]byte(dst), raw); err != nil {
				return err
			}
		}
		if err := meta.Delete([]byte(src)); err != nil {
			return err
		}
		renamed = true
		return nil
	})
	return renamed, err
}

func (b *Bolt) Delete(p string, recursive bool) (bool, error) {
	var deleted bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		files := tx.Bucket([]byte(filesBucket))
		meta := tx.Bucket([]byte(metaBucket))
		dirs := tx.Bucket([]byte(dirsBucket))

		if files.Get([]byte(p)) != nil {
			if err := files.Delete([]byte(p)); err != nil {
				return err
			}
			if err := meta.Delete([]byte(p)); err != nil {
				return err
			}
			deleted = true
			return nil
		}
		if dirs.Get([]byte(p)) == nil {
			return nil
		}
		if recursive {
			prefix := []byte(p + "/")
			for _, bkt := range []*bolt.Bucket{files, meta, dirs} {
				var doomed [][]byte
				c := bkt.Cursor()
				for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
					doomed = append(doomed, append([]byte(nil), k...))
				}
				for _, k := range doomed {
					if err := bkt.Delete(k); err != nil {
						return err
					}
				}
			}
		}
		if err := dirs.Delete([]byte(p)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (b *Bolt) Mkdir(dir string) error {
	if dir == "" {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		dirs := tx.Bucket([]byte(dirsBucket))
		for d := dir; d != ""; d = Parent(d) {
			if err := dirs.Put([]byte(d), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}
