package pathglob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/pgsched/fsproj"
	"github.com/productgraph/pgsched/graph"
	"github.com/productgraph/pgsched/intern"
	"github.com/productgraph/pgsched/pathglob"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

func buildTree(t *testing.T) *fsproj.Tree {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "main"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main", "a.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main", "b.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main", "README.md"), []byte("# hi\n"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "src", "main", "a.go"), filepath.Join(root, "src", "main", "link.go")))
	require.NoError(t, os.Symlink(filepath.Join(root, "does-not-exist"), filepath.Join(root, "src", "main", "dangling.go")))

	tree, err := fsproj.New(root)
	require.NoError(t, err)
	return tree
}

func drive(t *testing.T, g *graph.Graph, root graph.NodeID) {
	t.Helper()
	for i := 0; i < 50 && g.State(root) == types.Waiting; i++ {
		batch := g.Walk(root, nil)
		if len(batch) == 0 {
			break
		}
		for _, id := range batch {
			rule := g.Rule(id)
			require.NotNil(t, rule)
			result, err := rule.Func(context.Background(), g.Subject(id), g.RunnableArgs(id))
			require.NoError(t, g.Complete(id, g.Generation(id), result, err))
		}
	}
}

func TestWildcardMatchesFilesAndSkipsDanglingLink(t *testing.T) {
	tree := buildTree(t)
	reg := registry.New()
	require.NoError(t, pathglob.RegisterIntrinsics(reg, tree))
	g := graph.New(intern.New(), reg)

	globs, err := pathglob.CreatePathGlobs("src/main", []string{"*.go"})
	require.NoError(t, err)

	root := g.Demand(globs, "pathglob.Paths", nil)
	drive(t, g, root)

	require.Equal(t, types.Return, g.State(root))
	paths := g.Result(root).(pathglob.Paths)

	var names []string
	for _, p := range paths.Paths {
		names = append(names, filepath.Base(p.SymbolicPath))
	}
	assert.ElementsMatch(t, []string{"a.go", "b.go", "link.go"}, names)
}

func TestLiteralDescendsIntoSubdirectory(t *testing.T) {
	tree := buildTree(t)
	reg := registry.New()
	require.NoError(t, pathglob.RegisterIntrinsics(reg, tree))
	g := graph.New(intern.New(), reg)

	globs, err := pathglob.CreatePathGlobs("", []string{"src/main/*.go"})
	require.NoError(t, err)

	root := g.Demand(globs, "pathglob.Paths", nil)
	drive(t, g, root)

	require.Equal(t, types.Return, g.State(root))
	paths := g.Result(root).(pathglob.Paths)
	assert.Len(t, paths.Paths, 3) // a.go, b.go, link.go — dangling.go excluded
}

func TestScandirFaultOnConfirmedDirectoryThrows(t *testing.T) {
	tree := buildTree(t)
	reg := registry.New()
	require.NoError(t, pathglob.RegisterIntrinsics(reg, tree))
	g := graph.New(intern.New(), reg)

	root := g.Demand(pathglob.Dir{Path: "no-such-dir"}, "pathglob.Stats", nil)
	batch := g.Walk(root, nil)
	require.Len(t, batch, 1)
	rule := g.Rule(batch[0])
	result, err := rule.Func(context.Background(), g.Subject(batch[0]), g.RunnableArgs(batch[0]))
	require.NoError(t, g.Complete(batch[0], g.Generation(batch[0]), result, err))

	assert.Equal(t, types.Throw, g.State(root))
}
