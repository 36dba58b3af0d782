package logstore

import (
	"io/fs"
	"sort"

	"github.com/pkg/errors"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// ListFrom lists the entries of path's directory whose names are
// lexicographically >= path's own name, ascending. The input path itself
// is included if present. The directory is listed exactly once, up front;
// a file published concurrently may or may not appear, depending on the
// backend's listing consistency — callers that need a newly committed file
// to show up must retry at their own layer.
func (s *Store) ListFrom(path string) (*Listing, error) {
	dir := backend.Parent(path)
	name := backend.Base(path)
	entries, err := s.fs.List(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, dir)
		}
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	listTotal.Inc()
	kept := entries[:0]
	for _, e := range entries {
		if e.Name >= name {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	return &Listing{entries: kept}, nil
}

// Listing is a pull iterator over an already-sorted directory listing.
// Consumers may stop early.
type Listing struct {
	entries []backend.Info
	idx     int
	cur     backend.Info
}

// Next advances to the next entry, returning false when exhausted.
func (l *Listing) Next() bool {
	if l.idx >= len(l.entries) {
		return false
	}
	l.cur = l.entries[l.idx]
	l.idx++
	return true
}

// Entry returns the descriptor most recently produced by Next.
func (l *Listing) Entry() backend.Info { return l.cur }

// All drains the remaining entries.
func (l *Listing) All() []backend.Info {
	rest := l.entries[l.idx:]
	l.idx = len(l.entries)
	return rest
}
