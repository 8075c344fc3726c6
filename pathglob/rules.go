package pathglob

import (
	"context"
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/productgraph/pgsched/fsproj"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

// stats is the intrinsic scan result for a Dir: its direct children, with
// symlinks resolved one level deep and preserving the symbolic (not
// resolved) path, and dangling links dropped.
type stats struct {
	Entries []fsproj.Stat
}

// RegisterIntrinsics wires every pathglob rule — the self-identity rules
// SelectProjection relies on, the scandir intrinsic, and the glob
// expansion/filter/merge rules from create_fs_tasks — against tree.
func RegisterIntrinsics(reg *registry.Registry, tree *fsproj.Tree) error {
	registerCoercions()

	rules := []*types.Rule{
		identityRule("pathglob.PathGlobs", PathGlobs{}),
		identityRule("pathglob.PathWildcard", PathWildcard{}),
		identityRule("pathglob.PathLiteral", PathLiteral{}),
		identityRule("pathglob.PathDirWildcard", PathDirWildcard{}),

		scandirRule(tree),
		applyPathWildcardRule(),
		filterPathsRule(),
		filterWildcardPathsRule(),
		applyPathLiteralRule(),
		applyPathDirWildcardRule(),
		bridgeToPathsRule("pathglob.PathLiteral"),
		bridgeToPathsRule("pathglob.PathDirWildcard"),
		mergePathsRule(),

		readFileContentIntrinsic(tree),
		filesOnlyRule(),
		gatherFileContentsRule(),
		globsFileContentsRule(),
	}
	for _, r := range rules {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// registerCoercions installs the SelectProjection coercions pathglob
// subjects support: a raw root-relative path string projects straight to a
// Dir, the way Pants constructs a Dir from a bare path at projection time
// rather than requiring every upstream field to already be Dir-typed.
func registerCoercions() {
	types.RegisterCoercion("pathglob.Dir", func(raw any) (any, error) {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("pathglob.Dir: expected a string path, got %T", raw)
		}
		return Dir{Path: s}, nil
	})
}

// identityRule registers the "fetch my own type" rule SelectProjection
// relies on as its first stage: Pants expresses this the same way, by
// letting Select(SomeType) on a subject already of SomeType resolve
// trivially.
func identityRule(subjectType types.SubjectType, zero any) *types.Rule {
	product := types.ProductType(subjectType)
	return &types.Rule{
		Name: "identity:" + string(subjectType), SubjectType: subjectType, Output: product,
		Intrinsic: true,
		Func:      func(_ context.Context, subject any, _ []any) (any, error) { return subject, nil },
	}
}

func scandirRule(tree *fsproj.Tree) *types.Rule {
	return &types.Rule{
		Name: "scandir", SubjectType: "pathglob.Dir", Output: "pathglob.Stats",
		Intrinsic: true,
		Func: func(_ context.Context, subject any, _ []any) (any, error) {
			dir := subject.(Dir)
			entries, err := tree.Scandir(dir.Path)
			if err != nil {
				return nil, err
			}
			resolved := make([]fsproj.Stat, 0, len(entries))
			for _, e := range entries {
				if e.Kind != fsproj.KindLink {
					resolved = append(resolved, e)
					continue
				}
				target, err := tree.Readlink(e.Path)
				if err != nil {
					continue // dangling link: no match
				}
				targetStat, err := tree.Stat(target)
				if err != nil {
					continue // dangling link: no match
				}
				// Preserve the symbolic (link) path, adopt the target's kind.
				resolved = append(resolved, fsproj.Stat{Path: e.Path, Kind: targetStat.Kind})
			}
			return stats{Entries: resolved}, nil
		},
	}
}

func applyPathWildcardRule() *types.Rule {
	return &types.Rule{
		Name: "applyPathWildcard", SubjectType: "pathglob.PathWildcard", Output: "pathglob.Paths",
		Selectors: []types.Selector{
			types.SelectProjection("pathglob.Stats", "pathglob.Dir", "CanonicalDir", "pathglob.PathWildcard"),
		},
		Func: func(_ context.Context, subject any, args []any) (any, error) {
			w := subject.(PathWildcard)
			st := args[0].(stats)
			var matches []Path
			for _, s := range st.Entries {
				base := path.Base(s.Path)
				ok, err := doublestar.Match(w.Wildcard, base)
				if err != nil || !ok {
					continue
				}
				matches = append(matches, Path{
					SymbolicPath: path.Join(w.SymbolicPath, base),
					Stat:         s,
				})
			}
			return Paths{Paths: matches}, nil
		},
	}
}

func filterPathsRule() *types.Rule {
	return &types.Rule{
		Name: "filterPaths", SubjectType: "pathglob.PathLiteral", Output: "pathglob.FilteredPaths",
		Selectors: []types.Selector{
			types.SelectProjection("pathglob.Stats", "pathglob.Dir", "CanonicalDir", "pathglob.PathLiteral"),
		},
		Func: func(_ context.Context, subject any, args []any) (any, error) {
			l := subject.(PathLiteral)
			st := args[0].(stats)
			var matches []Path
			for _, s := range st.Entries {
				if path.Base(s.Path) == l.Literal {
					matches = append(matches, Path{SymbolicPath: path.Join(l.SymbolicPath, l.Literal), Stat: s})
				}
			}
			return FilteredPaths{Paths: Paths{Paths: matches}}, nil
		},
	}
}

func filterWildcardPathsRule() *types.Rule {
	return &types.Rule{
		Name: "filterWildcardPaths", SubjectType: "pathglob.PathDirWildcard", Output: "pathglob.FilteredPaths",
		Selectors: []types.Selector{
			types.SelectProjection("pathglob.Stats", "pathglob.Dir", "CanonicalDir", "pathglob.PathDirWildcard"),
		},
		Func: func(_ context.Context, subject any, args []any) (any, error) {
			w := subject.(PathDirWildcard)
			st := args[0].(stats)
			var matches []Path
			for _, s := range st.Entries {
				base := path.Base(s.Path)
				ok, err := doublestar.Match(w.Wildcard, base)
				if err != nil || !ok {
					continue
				}
				matches = append(matches, Path{SymbolicPath: path.Join(w.SymbolicPath, base), Stat: s})
			}
			return FilteredPaths{Paths: Paths{Paths: matches}}, nil
		},
	}
}

// applyPathLiteralRule expects its FilteredPaths to match at most one
// directory, per apply_path_literal's assertion in fs.py.
func applyPathLiteralRule() *types.Rule {
	return &types.Rule{
		Name: "applyPathLiteral", SubjectType: "pathglob.PathLiteral", Output: "pathglob.PathGlobs",
		Selectors: []types.Selector{types.Select("pathglob.FilteredPaths")},
		Func: func(_ context.Context, subject any, args []any) (any, error) {
			l := subject.(PathLiteral)
			fp := args[0].(FilteredPaths)
			dirs := fp.Paths.Dirs()
			if len(dirs) > 1 {
				return nil, &tooManyDirsError{glob: l.SymbolicPath, count: len(dirs)}
			}
			globs := make([]any, 0, len(dirs))
			for _, d := range dirs {
				g, err := CreateFromSpec(Dir{Path: d.Stat.Path}, d.SymbolicPath, l.Remainder)
				if err != nil {
					return nil, err
				}
				globs = append(globs, g)
			}
			return PathGlobs{Globs: globs}, nil
		},
	}
}

func applyPathDirWildcardRule() *types.Rule {
	return &types.Rule{
		Name: "applyPathDirWildcard", SubjectType: "pathglob.PathDirWildcard", Output: "pathglob.PathGlobs",
		Selectors: []types.Selector{types.Select("pathglob.FilteredPaths")},
		Func: func(_ context.Context, subject any, args []any) (any, error) {
			w := subject.(PathDirWildcard)
			fp := args[0].(FilteredPaths)
			var globs []any
			for _, d := range fp.Paths.Dirs() {
				for _, remainder := range w.Remainders {
					g, err := CreateFromSpec(Dir{Path: d.Stat.Path}, d.SymbolicPath, remainder)
					if err != nil {
						return nil, err
					}
					globs = append(globs, g)
				}
			}
			return PathGlobs{Globs: globs}, nil
		},
	}
}

// bridgeToPathsRule lets a PathLiteral or PathDirWildcard satisfy a direct
// "Paths" demand: it first expands itself into a fresh PathGlobs (via
// applyPathLiteralRule/applyPathDirWildcardRule), then the identity-field
// SelectProjection hands that PathGlobs straight to mergePathsRule without
// any field to unwrap — both shapes recurse to their remainder's Paths the
// same way merge_paths's own recursion does in fs.py.
func bridgeToPathsRule(subjectType types.SubjectType) *types.Rule {
	return &types.Rule{
		Name: "bridgeToPaths:" + string(subjectType), SubjectType: subjectType, Output: "pathglob.Paths",
		Selectors: []types.Selector{
			types.SelectProjection("pathglob.Paths", "pathglob.PathGlobs", "", "pathglob.PathGlobs"),
		},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return args[0], nil
		},
	}
}

func mergePathsRule() *types.Rule {
	return &types.Rule{
		Name: "mergePaths", SubjectType: "pathglob.PathGlobs", Output: "pathglob.Paths",
		Selectors: []types.Selector{
			types.SelectDependenciesTyped("pathglob.Paths", "pathglob.PathGlobs", "Globs", ""),
		},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			var merged []Path
			for _, v := range args[0].([]any) {
				merged = append(merged, v.(Paths).Paths...)
			}
			return Paths{Paths: merged}, nil
		},
	}
}

func readFileContentIntrinsic(tree *fsproj.Tree) *types.Rule {
	return &types.Rule{
		Name: "readFileContent", SubjectType: "pathglob.Path", Output: "pathglob.FileContent",
		Intrinsic: true,
		Func: func(_ context.Context, subject any, _ []any) (any, error) {
			p := subject.(Path)
			data, err := tree.Content(p.Stat.Path)
			if err != nil {
				return nil, err
			}
			return FileContent{Path: p.Stat.Path, Content: data}, nil
		},
	}
}

func filesOnlyRule() *types.Rule {
	return &types.Rule{
		Name: "filesOnly", SubjectType: "pathglob.Paths", Output: "pathglob.Files",
		Func: func(_ context.Context, subject any, _ []any) (any, error) {
			p := subject.(Paths)
			return Paths{Paths: p.Files()}, nil
		},
	}
}

func gatherFileContentsRule() *types.Rule {
	return &types.Rule{
		Name: "gatherFileContents", SubjectType: "pathglob.Paths", Output: "pathglob.FilesContent",
		Selectors: []types.Selector{
			types.SelectDependenciesTyped("pathglob.FileContent", "pathglob.Files", "Paths", "pathglob.Path"),
		},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return args[0], nil
		},
	}
}

// globsFileContentsRule lets a caller demand "pathglob.FilesContent"
// straight from a PathGlobs root, without first demanding Paths itself:
// it fetches Paths for the current subject (routing through mergePathsRule)
// then the identity-field SelectProjection hands that Paths value on to
// gatherFileContentsRule's own "pathglob.Paths"-subject demand.
func globsFileContentsRule() *types.Rule {
	return &types.Rule{
		Name: "globsFileContents", SubjectType: "pathglob.PathGlobs", Output: "pathglob.FilesContent",
		Selectors: []types.Selector{
			types.SelectProjection("pathglob.FilesContent", "pathglob.Paths", "", "pathglob.Paths"),
		},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return args[0], nil
		},
	}
}

type tooManyDirsError struct {
	glob  string
	count int
}

func (e *tooManyDirsError) Error() string {
	return "pathglob: literal component under " + e.glob + " matched more than one directory"
}
