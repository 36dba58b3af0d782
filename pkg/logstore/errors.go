package logstore

import "github.com/pkg/errors"

// Sentinel conditions surfaced by the store. Match with errors.Is; the
// wrapped chain carries the offending path.
var (
	// ErrNotFound: a required parent directory (or the file being read)
	// does not exist. Never retried here.
	ErrNotFound = errors.New("no such file or directory")

	// ErrAlreadyExists: the create-if-absent target is already present,
	// either up front or discovered after a failed rename. Losing the race
	// is the expected outcome for all but one concurrent writer; callers
	// typically respond by picking the next commit number.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrRenameInconsistent: the rename failed yet the target still does
	// not exist. The backend neither published our file nor shows a
	// conflicting one — a fatal inconsistency that must not be retried
	// blindly.
	ErrRenameInconsistent = errors.New("rename failed with no conflicting file")
)
