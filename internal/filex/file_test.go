package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	defer chdir(t, tmp)()

	got, err := EnsureDir("data", 0o750)
	require.NoError(t, err)

	want := filepath.Join(tmp, "data")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Nested(t *testing.T) {
	base := t.TempDir()
	got, err := EnsureDir(filepath.Join(base, "a", "b", "c"), 0o750)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "a", "b", "c"), got)
}

func TestEnsureDir_Idempotent(t *testing.T) {
	base := t.TempDir()
	first, err := EnsureDir(filepath.Join(base, "x"), 0o750)
	require.NoError(t, err)
	second, err := EnsureDir(filepath.Join(base, "x"), 0o750)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	base := t.TempDir()
	p := filepath.Join(base, "f")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	_, err := EnsureDir(p, 0o750)
	require.Error(t, err)
}
