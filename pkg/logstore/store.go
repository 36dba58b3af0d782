// Package logstore implements a commit-log store: multiple writers append
// immutable, sequentially-numbered commit files into a shared directory,
// each file created at most once, and readers discover published commits
// in name order from any starting point.
//
// The store composes the weak primitives of a backend.FileSystem into a
// create-once guarantee: content is staged under a randomized temporary
// name in the target's directory and published by a single atomic rename.
// The rename is the only arbiter between concurrent writers; no in-process
// locking is used because the real contention is across processes and
// machines.
package logstore

import (
	"github.com/sirupsen/logrus"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// Store exposes the three commit-log operations over one backend.
type Store struct {
	fs     backend.FileSystem
	logger logrus.FieldLogger
	token  TokenSource
}

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the default logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTokenSource replaces the staging-name token source. Tests use this to
// make temp names deterministic.
func WithTokenSource(ts TokenSource) Option {
	return func(s *Store) { s.token = ts }
}

// New returns a Store over fs.
func New(fs backend.FileSystem, opts ...Option) *Store {
	s := &Store{
		fs:     fs,
		logger: logrus.StandardLogger(),
		token:  UUIDToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
