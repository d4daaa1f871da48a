package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("dump"), 0o644))

	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestPrune_RemovesExpired(t *testing.T) {
	dir := t.TempDir()

	old := writeArchive(t, dir, "botforge_20260101_000000.sql.gz", 10*24*time.Hour)
	fresh := writeArchive(t, dir, "botforge_20260828_000000.sql.gz", time.Hour)

	removed, err := Prune(dir, 7*24*time.Hour, 10, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestPrune_EnforcesMaxCount(t *testing.T) {
	dir := t.TempDir()

	oldest := writeArchive(t, dir, "botforge_20260801_000000.sql.gz", 3*time.Hour)
	middle := writeArchive(t, dir, "botforge_20260802_000000.sql.gz", 2*time.Hour)
	newest := writeArchive(t, dir, "botforge_20260803_000000.sql.gz", time.Hour)

	removed, err := Prune(dir, 0, 2, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldest)
	assert.FileExists(t, middle)
	assert.FileExists(t, newest)
}

func TestPrune_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()

	foreign := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

	removed, err := Prune(dir, time.Nanosecond, 0, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 0, removed)
	assert.FileExists(t, foreign)
}
