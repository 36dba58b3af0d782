package logstore

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// testBackends returns every rename-safe backend the core tests run
// against, each with a "log" directory already present.
func testBackends(t *testing.T) map[string]backend.FileSystem {
	t.Helper()

	local := backend.NewLocal(t.TempDir())
	require.NoError(t, local.Mkdir("log"))

	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	bfs, err := backend.NewBolt(db)
	require.NoError(t, err)
	require.NoError(t, bfs.Mkdir("log"))

	return map[string]backend.FileSystem{"local": local, "bolt": bfs}
}

func readAll(t *testing.T, s *Store, path string) []string {
	t.Helper()
	it, err := s.ReadLines(path)
	require.NoError(t, err)
	defer it.Close()
	var lines []string
	for it.Next() {
		lines = append(lines, it.Line())
	}
	require.NoError(t, it.Err())
	return lines
}

func listNames(t *testing.T, s *Store, path string) []string {
	t.Helper()
	listing, err := s.ListFrom(path)
	require.NoError(t, err)
	var names []string
	for listing.Next() {
		names = append(names, listing.Entry().Name)
	}
	return names
}

// rawNames bypasses the store's name filter so cleanup assertions see
// staging files too.
func rawNames(t *testing.T, fs backend.FileSystem, dir string) []string {
	t.Helper()
	entries, err := fs.List(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestWriteReadRoundTrip(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			require.NoError(t, s.Write("log/00000001.json", []string{"a", "b", "c"}, false))
			assert.Equal(t, []string{"a", "b", "c"}, readAll(t, s, "log/00000001.json"))
		})
	}
}

func TestCreateIfAbsentRefusesExisting(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			require.NoError(t, s.Write("log/00000001.json", []string{"first"}, false))
			err := s.Write("log/00000001.json", []string{"second"}, false)
			require.ErrorIs(t, err, ErrAlreadyExists)
			assert.Equal(t, []string{"first"}, readAll(t, s, "log/00000001.json"))
		})
	}
}

func TestOverwriteLastWriterWins(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			require.NoError(t, s.Write("log/latest", []string{"one"}, true))
			require.NoError(t, s.Write("log/latest", []string{"two", "lines"}, true))
			assert.Equal(t, []string{"two", "lines"}, readAll(t, s, "log/latest"))
		})
	}
}

func TestWriteMissingParent(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			for _, overwrite := range []bool{false, true} {
				err := s.Write("nope/00000001.json", []string{"x"}, overwrite)
				require.ErrorIs(t, err, ErrNotFound)
			}
			// no staging artifact may leak into existing directories
			assert.Empty(t, rawNames(t, fs, "log"))
		})
	}
}

func TestConcurrentCreateExactlyOnce(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			const writers = 16
			results := make([]error, writers)
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = s.Write("log/00000001.json",
						[]string{fmt.Sprintf("writer-%d", i)}, false)
				}(i)
			}
			wg.Wait()

			winner := -1
			for i, err := range results {
				if err == nil {
					require.Equal(t, -1, winner, "more than one attempt succeeded")
					winner = i
					continue
				}
				require.ErrorIs(t, err, ErrAlreadyExists)
			}
			require.NotEqual(t, -1, winner, "no attempt succeeded")
			assert.Equal(t, []string{fmt.Sprintf("writer-%d", winner)},
				readAll(t, s, "log/00000001.json"))

			// all losers' staging files must be gone
			assert.Equal(t, []string{"00000001.json"}, rawNames(t, fs, "log"))
		})
	}
}

func TestTempCleanupAfterSuccess(t *testing.T) {
	fs := backend.NewLocal(t.TempDir())
	require.NoError(t, fs.Mkdir("log"))
	s := New(fs)
	require.NoError(t, s.Write("log/00000001.json", []string{"x"}, false))
	assert.Equal(t, []string{"00000001.json"}, rawNames(t, fs, "log"))
}

func TestListFromOrderAndFilter(t *testing.T) {
	for name, fs := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(fs)
			for _, n := range []string{"0003", "0001", "0005", "0002"} {
				require.NoError(t, s.Write("log/"+n, []string{n}, false))
			}
			assert.Equal(t, []string{"0002", "0003", "0005"}, listNames(t, s, "log/0002"))
		})
	}
}

func TestListFromMissingParent(t *testing.T) {
	s := New(backend.NewLocal(t.TempDir()))
	_, err := s.ListFrom("nope/0001")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFromCarriesMetadata(t *testing.T) {
	fs := backend.NewLocal(t.TempDir())
	require.NoError(t, fs.Mkdir("log"))
	s := New(fs)
	require.NoError(t, s.Write("log/0001", []string{"abc"}, false))

	listing, err := s.ListFrom("log/0001")
	require.NoError(t, err)
	require.True(t, listing.Next())
	e := listing.Entry()
	assert.Equal(t, "0001", e.Name)
	assert.Equal(t, int64(4), e.Size) // "abc\n"
	assert.False(t, e.ModTime.IsZero())
	assert.False(t, listing.Next())
}

func TestReadLinesNotFound(t *testing.T) {
	s := New(backend.NewLocal(t.TempDir()))
	_, err := s.ReadLines("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadLinesEarlyClose(t *testing.T) {
	fs := backend.NewLocal(t.TempDir())
	s := New(fs)
	require.NoError(t, s.Write("commits", []string{"a", "b", "c"}, false))

	it, err := s.ReadLines("commits")
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "a", it.Line())
	require.NoError(t, it.Close())
	assert.False(t, it.Next(), "iterator must stay exhausted after Close")
	require.NoError(t, it.Close(), "Close must be idempotent")
}

/* fault injection */

// hookFS wraps a real backend and lets a test rewrite single operations.
type hookFS struct {
	backend.FileSystem
	rename    func(inner backend.FileSystem, src, dst string) (bool, error)
	openWrite func(inner backend.FileSystem, path string, truncate bool) (io.WriteCloser, error)
}

func (h *hookFS) Rename(src, dst string) (bool, error) {
	if h.rename != nil {
		return h.rename(h.FileSystem, src, dst)
	}
	return h.FileSystem.Rename(src, dst)
}

func (h *hookFS) OpenWrite(path string, truncate bool) (io.WriteCloser, error) {
	if h.openWrite != nil {
		return h.openWrite(h.FileSystem, path, truncate)
	}
	return h.FileSystem.OpenWrite(path, truncate)
}

type failingWriter struct{ io.WriteCloser }

func (w *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestStagingFailureCleansTemp(t *testing.T) {
	inner := backend.NewLocal(t.TempDir())
	fs := &hookFS{
		FileSystem: inner,
		openWrite: func(b backend.FileSystem, path string, truncate bool) (io.WriteCloser, error) {
			w, err := b.OpenWrite(path, truncate)
			if err != nil {
				return nil, err
			}
			return &failingWriter{w}, nil
		},
	}
	s := New(fs)

	err := s.Write("0001", []string{"x"}, false)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyExists)

	entries, lerr := inner.List("")
	require.NoError(t, lerr)
	assert.Empty(t, entries, "failed staging must leave nothing behind")
}

func TestRenameLosesToConcurrentWriter(t *testing.T) {
	inner := backend.NewLocal(t.TempDir())
	fs := &hookFS{
		FileSystem: inner,
		rename: func(b backend.FileSystem, src, dst string) (bool, error) {
			// another writer publishes dst between our existence check
			// and our rename
			w, err := b.OpenWrite(dst, false)
			if err != nil {
				return false, err
			}
			if _, err := w.Write([]byte("them\n")); err != nil {
				return false, err
			}
			if err := w.Close(); err != nil {
				return false, err
			}
			return b.Rename(src, dst)
		},
	}
	s := New(fs)

	err := s.Write("0001", []string{"us"}, false)
	require.ErrorIs(t, err, ErrAlreadyExists)

	assert.Equal(t, []string{"them"}, readAll(t, New(inner), "0001"))
	entries, lerr := inner.List("")
	require.NoError(t, lerr)
	require.Len(t, entries, 1, "loser's staging file must be deleted")
}

func TestRenameInconsistencyIsFatal(t *testing.T) {
	inner := backend.NewLocal(t.TempDir())
	fs := &hookFS{
		FileSystem: inner,
		rename: func(b backend.FileSystem, src, dst string) (bool, error) {
			// backend refuses the rename yet leaves no conflicting file
			return false, nil
		},
	}
	s := New(fs)

	err := s.Write("0001", []string{"x"}, false)
	require.ErrorIs(t, err, ErrRenameInconsistent)

	// best-effort cleanup still runs
	entries, lerr := inner.List("")
	require.NoError(t, lerr)
	assert.Empty(t, entries)
}

func TestWriterTokensKeepConcurrentStagingApart(t *testing.T) {
	fs := backend.NewLocal(t.TempDir())
	seen := map[string]bool{}
	var mu sync.Mutex
	s := New(fs, WithTokenSource(func() string {
		mu.Lock()
		defer mu.Unlock()
		tok := fmt.Sprintf("tok-%d", len(seen))
		seen[tok] = true
		return tok
	}))
	require.NoError(t, s.Write("0001", []string{"a"}, false))
	require.ErrorIs(t, s.Write("0001", []string{"b"}, false), ErrAlreadyExists)
	assert.Len(t, seen, 1, "losing on the advisory check must not stage at all")
}
