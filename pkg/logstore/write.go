package logstore

import (
	"bufio"
	"io"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// Write persists lines under path, each terminated by a newline.
//
// With overwrite set the target is truncated and replaced in place; last
// writer wins and no atomicity is claimed. Without it the content is
// staged under a temporary name and published by one atomic rename, so the
// target is created at most once: concurrent attempts see exactly one
// success, the rest ErrAlreadyExists. The parent directory must exist in
// either mode.
//
// The store never retries; every failure surfaces to the caller as-is.
func (s *Store) Write(path string, lines []string, overwrite bool) error {
	timer := prometheus.NewTimer(writeLatency)
	defer timer.ObserveDuration()

	dir := backend.Parent(path)
	ok, err := s.fs.Exists(dir)
	if err != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "check parent %s", dir)
	}
	if !ok {
		writeTotal.WithLabelValues(outcomeNotFound).Inc()
		return errors.Wrap(ErrNotFound, dir)
	}
	if overwrite {
		return s.overwrite(path, lines)
	}
	return s.createIfAbsent(path, lines)
}

func (s *Store) overwrite(path string, lines []string) error {
	w, err := s.fs.OpenWrite(path, true)
	if err != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "open %s", path)
	}
	if err := writeLines(w, lines); err != nil {
		_ = w.Close()
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := w.Close(); err != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "close %s", path)
	}
	writeTotal.WithLabelValues(outcomeOverwritten).Inc()
	s.logger.WithField("path", path).Debug("overwrote commit file")
	return nil
}

// createIfAbsent stages the content under a temp name in the target's
// directory and publishes it with a single rename. The up-front existence
// check is advisory only; the rename is the real gate.
func (s *Store) createIfAbsent(path string, lines []string) (err error) {
	ok, err := s.fs.Exists(path)
	if err != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "check %s", path)
	}
	if ok {
		writeTotal.WithLabelValues(outcomeAlreadyExists).Inc()
		return errors.Wrap(ErrAlreadyExists, path)
	}

	tmp := tempPath(path, s.token())
	w, err := s.fs.OpenWrite(tmp, false)
	if err != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(err, "stage %s", tmp)
	}

	streamClosed := false
	renamed := false
	defer func() {
		// cleanup runs on every exit path; its own failures never mask
		// the primary error
		if !streamClosed {
			if cerr := w.Close(); cerr != nil && err != nil {
				err = multierror.Append(err, errors.Wrap(cerr, "close staging stream"))
			}
		}
		if !renamed {
			if _, derr := s.fs.Delete(tmp, false); derr != nil {
				s.logger.WithField("path", tmp).WithError(derr).
					Warn("staging file left behind")
				if err != nil {
					err = multierror.Append(err, errors.Wrapf(derr, "delete %s", tmp))
				}
			}
		}
	}()

	if werr := writeLines(w, lines); werr != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(werr, "stage %s", tmp)
	}
	streamClosed = true
	if cerr := w.Close(); cerr != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(cerr, "close %s", tmp)
	}

	ok, rerr := s.fs.Rename(tmp, path)
	if ok {
		// a backend may publish the file yet fail to unlink the staging
		// name; the deferred delete picks that up
		renamed = rerr == nil
		if rerr != nil {
			s.logger.WithField("path", tmp).WithError(rerr).
				Warn("rename left staging name behind")
		}
		writeTotal.WithLabelValues(outcomeCommitted).Inc()
		s.logger.WithField("path", path).Debug("committed")
		return nil
	}
	if rerr != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(rerr, "rename %s -> %s", tmp, path)
	}

	// rename refused: either a concurrent writer won, or the backend is
	// in a state this layer cannot explain
	exists, eerr := s.fs.Exists(path)
	if eerr != nil {
		writeTotal.WithLabelValues(outcomeIOError).Inc()
		return errors.Wrapf(eerr, "recheck %s", path)
	}
	if exists {
		writeTotal.WithLabelValues(outcomeAlreadyExists).Inc()
		return errors.Wrap(ErrAlreadyExists, path)
	}
	writeTotal.WithLabelValues(outcomeInconsistent).Inc()
	return errors.Wrapf(ErrRenameInconsistent, "%s -> %s", tmp, path)
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
