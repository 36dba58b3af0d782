package logstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dattu/commitlog_store/pkg/backend"
)

func TestSweepRemovesOnlyStaleTemps(t *testing.T) {
	root := t.TempDir()
	fs := backend.NewLocal(root)
	require.NoError(t, fs.Mkdir("log"))

	stale := filepath.Join(root, "log", ".0001.dead.tmp")
	fresh := filepath.Join(root, "log", ".0002.live.tmp")
	committed := filepath.Join(root, "log", "0001")
	for _, p := range []string{stale, fresh, committed} {
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	sw := NewSweeper(fs, []string{"log"}, time.Hour, logrus.New())
	removed, err := sw.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, committed)
}

func TestSweepIgnoresStaleCommits(t *testing.T) {
	root := t.TempDir()
	fs := backend.NewLocal(root)

	committed := filepath.Join(root, "0001")
	require.NoError(t, os.WriteFile(committed, []byte("x\n"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(committed, old, old))

	sw := NewSweeper(fs, []string{""}, time.Hour, logrus.New())
	removed, err := sw.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, committed)
}
