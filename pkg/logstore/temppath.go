package logstore

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// TokenSource produces one unique token per write attempt. Injectable so
// temp naming and collision handling are testable.
type TokenSource func() string

// UUIDToken is the default TokenSource.
func UUIDToken() string {
	return uuid.NewString()
}

// RandToken is a TokenSource reading 16 bytes from crypto/rand, for
// environments that want hex tokens instead of UUIDs.
func RandToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the process is in much deeper trouble
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

// tempPath derives the staging path for target: same directory, hidden
// name carrying the target name and a per-attempt token.
func tempPath(target, token string) string {
	name := "." + backend.Base(target) + "." + token + ".tmp"
	return backend.Join(backend.Parent(target), name)
}

// IsTempName reports whether name looks like a staging artifact. The
// sweeper uses this to avoid ever touching committed files.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}
