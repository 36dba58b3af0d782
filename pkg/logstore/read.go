package logstore

import (
	"bufio"
	"io"
	"io/fs"

	"github.com/pkg/errors"
)

// maxLineBytes bounds a single commit record line.
const maxLineBytes = 16 * 1024 * 1024

// ReadLines opens path and returns its contents as a single-pass iterator
// of UTF-8 lines. The underlying handle is released exactly once: on
// exhaustion, on a scan error, or when the caller abandons the iterator
// via Close.
func (s *Store) ReadLines(path string) (*LineIterator, error) {
	rc, err := s.fs.OpenRead(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	readTotal.Inc()
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineIterator{rc: rc, scanner: sc}, nil
}

// LineIterator yields the lines of one file, forward only. Typical use:
//
//	it, err := store.ReadLines(p)
//	...
//	defer it.Close()
//	for it.Next() {
//	    handle(it.Line())
//	}
//	return it.Err()
type LineIterator struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	line    string
	err     error
	closed  bool
}

// Next advances to the next line. It returns false at end of input, after
// an error, or once the iterator has been closed; the handle is released
// as soon as iteration cannot continue.
func (it *LineIterator) Next() bool {
	if it.closed {
		return false
	}
	if it.scanner.Scan() {
		it.line = it.scanner.Text()
		return true
	}
	it.err = it.scanner.Err()
	it.release()
	return false
}

// Line returns the line most recently produced by Next, without its
// terminator.
func (it *LineIterator) Line() string { return it.line }

// Err returns the first error hit during iteration, nil on clean EOF.
func (it *LineIterator) Err() error { return it.err }

// Close releases the underlying handle. Safe to call more than once and
// after exhaustion.
func (it *LineIterator) Close() error {
	it.release()
	return it.err
}

func (it *LineIterator) release() {
	if it.closed {
		return
	}
	it.closed = true
	if cerr := it.rc.Close(); cerr != nil && it.err == nil {
		it.err = errors.Wrap(cerr, "close reader")
	}
}
