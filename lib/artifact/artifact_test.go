package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStat(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	missing, err := Stat(filepath.Join(dir, "missing.mov"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty := filepath.Join(dir, "empty.mov")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	a, err := Stat(empty)
	require.NoError(t, err)
	assert.Nil(t, a, "an empty file is not an artifact")

	full := filepath.Join(dir, "full.mov")
	require.NoError(t, os.WriteFile(full, []byte("0123456789"), 0o644))
	a, err = Stat(full)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, &Artifact{Path: full, Size: 10}, a)

	_, err = Stat(dir)
	require.Error(t, err)
}

func TestTrackerFollowsWrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rec.mov")

	tr := NewTracker(t.Context(), path)
	t.Cleanup(func() { _ = tr.Close() })
	assert.Zero(t, tr.Size())

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tr.Size() == 1024 }, 2*time.Second, 10*time.Millisecond)

	_, err = f.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tr.Size() == 2048 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrackerIgnoresOtherFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tr := NewTracker(t.Context(), filepath.Join(dir, "rec.mov"))
	t.Cleanup(func() { _ = tr.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.mov"), []byte("abc"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, tr.Size())
}

func TestTrackerMissingDirectoryFallsBackToStat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nope", "rec.mov")
	tr := NewTracker(t.Context(), path)
	assert.Nil(t, tr.watcher)
	assert.Zero(t, tr.Size())

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o644))
	assert.Equal(t, int64(4), tr.Size())

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}
