package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mtime time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestDirty_MissingOutput(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, filepath.Join(dir, "in.geojson"), time.Now())

	require.True(t, Dirty([]string{filepath.Join(dir, "nope.geojson")}, []string{in}))
}

func TestDirty_EmptyOutputsAlwaysDirty(t *testing.T) {
	require.True(t, Dirty(nil, nil))
	require.True(t, Dirty([]string{}, []string{"whatever"}))
}

func TestDirty_EmptyInputs(t *testing.T) {
	dir := t.TempDir()
	out := touch(t, filepath.Join(dir, "out.geojson"), time.Now())

	// Nothing can make an existing output stale relative to no inputs.
	require.False(t, Dirty([]string{out}, nil))
	// But a missing output still forces generation.
	require.True(t, Dirty([]string{filepath.Join(dir, "gone")}, nil))
}

func TestDirty_OutputOlderThanInput(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	out := touch(t, filepath.Join(dir, "out.geojson"), base)
	in := touch(t, filepath.Join(dir, "in.geojson"), base.Add(time.Minute))

	require.True(t, Dirty([]string{out}, []string{in}))
}

func TestDirty_OutputNewerThanInput(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	in := touch(t, filepath.Join(dir, "in.geojson"), base)
	out := touch(t, filepath.Join(dir, "out.geojson"), base.Add(time.Minute))

	require.False(t, Dirty([]string{out}, []string{in}))
}

func TestDirty_MinOutputVsMaxInput(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	outOld := touch(t, filepath.Join(dir, "out_old"), base)
	outNew := touch(t, filepath.Join(dir, "out_new"), base.Add(10*time.Minute))
	inOld := touch(t, filepath.Join(dir, "in_old"), base.Add(-10*time.Minute))
	inNew := touch(t, filepath.Join(dir, "in_new"), base.Add(5*time.Minute))

	// Oldest output (base) is older than newest input (base+5m).
	require.True(t, Dirty([]string{outOld, outNew}, []string{inOld, inNew}))
	// Without the newer input the outputs are fresh.
	require.False(t, Dirty([]string{outOld, outNew}, []string{inOld}))
}

func TestDirtyFile(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	out := touch(t, filepath.Join(dir, "out"), base.Add(time.Minute))
	in := touch(t, filepath.Join(dir, "in"), base)

	require.False(t, DirtyFile(out, in))
	require.True(t, DirtyFile(filepath.Join(dir, "missing"), in))
}
