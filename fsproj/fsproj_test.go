package fsproj_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/pgsched/fsproj"
)

func buildRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "main"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main", "a.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("hi\n"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join("main", "a.go"), filepath.Join(root, "src", "rel-link.go")))
	require.NoError(t, os.Symlink(filepath.Join(root, "src", "main", "a.go"), filepath.Join(root, "src", "abs-link.go")))
	return root
}

func TestNewRejectsMissingOrNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()

	_, err := fsproj.New(filepath.Join(root, "does-not-exist"))
	assert.Error(t, err)

	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = fsproj.New(file)
	assert.Error(t, err)
}

func TestScandirReportsKindsAndRootRelativePaths(t *testing.T) {
	tree, err := fsproj.New(buildRoot(t))
	require.NoError(t, err)

	entries, err := tree.Scandir("src")
	require.NoError(t, err)

	byPath := map[string]fsproj.StatKind{}
	for _, e := range entries {
		byPath[e.Path] = e.Kind
	}
	assert.Equal(t, fsproj.KindDir, byPath["src/main"])
	assert.Equal(t, fsproj.KindLink, byPath["src/rel-link.go"])
	assert.Equal(t, fsproj.KindLink, byPath["src/abs-link.go"])
}

func TestScandirFailsEagerlyOnNonDirectory(t *testing.T) {
	tree, err := fsproj.New(buildRoot(t))
	require.NoError(t, err)

	_, err = tree.Scandir("top.txt")
	assert.Error(t, err)
}

func TestReadlinkResolvesRelativeAndAbsoluteTargetsRootRelative(t *testing.T) {
	root := buildRoot(t)
	tree, err := fsproj.New(root)
	require.NoError(t, err)

	rel, err := tree.Readlink("src/rel-link.go")
	require.NoError(t, err)
	assert.Equal(t, "src/main/a.go", rel)

	abs, err := tree.Readlink("src/abs-link.go")
	require.NoError(t, err)
	assert.Equal(t, "src/main/a.go", abs)
}

func TestContentReadsFileBytes(t *testing.T) {
	tree, err := fsproj.New(buildRoot(t))
	require.NoError(t, err)

	data, err := tree.Content("top.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestContentFailsOnMissingPath(t *testing.T) {
	tree, err := fsproj.New(buildRoot(t))
	require.NoError(t, err)

	_, err = tree.Content("does-not-exist.txt")
	assert.Error(t, err)
}

func TestStatReportsKindForFileDirAndLink(t *testing.T) {
	tree, err := fsproj.New(buildRoot(t))
	require.NoError(t, err)

	s, err := tree.Stat("top.txt")
	require.NoError(t, err)
	assert.Equal(t, fsproj.KindFile, s.Kind)

	s, err = tree.Stat("src/main")
	require.NoError(t, err)
	assert.Equal(t, fsproj.KindDir, s.Kind)

	s, err = tree.Stat("src/rel-link.go")
	require.NoError(t, err)
	assert.Equal(t, fsproj.KindLink, s.Kind)
}
