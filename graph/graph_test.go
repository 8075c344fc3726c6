package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/pgsched/graph"
	"github.com/productgraph/pgsched/intern"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

type address struct {
	Host string
}

func (address) SubjectType() types.SubjectType { return "Address" }

type globPattern string

func (globPattern) SubjectType() types.SubjectType { return "Glob" }

type emptyGlobPattern string

func (emptyGlobPattern) SubjectType() types.SubjectType { return "EmptyGlob" }

func newGraph(t *testing.T, rules ...*types.Rule) (*graph.Graph, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	for _, r := range rules {
		require.NoError(t, reg.Register(r))
	}
	return graph.New(intern.New(), reg), reg
}

// drive repeatedly walks root, running each Runnable node's own rule
// function against its resolved arguments (exactly what package scheduler
// would do with an execution pool), until root settles or the iteration
// budget is spent.
func drive(t *testing.T, g *graph.Graph, root graph.NodeID) {
	t.Helper()
	for i := 0; i < 50 && g.State(root) == types.Waiting; i++ {
		batch := g.Walk(root, nil)
		if len(batch) == 0 {
			break
		}
		for _, id := range batch {
			rule := g.Rule(id)
			require.NotNil(t, rule, "node for %s runnable with no rule installed", g.Product(id))
			result, err := rule.Func(context.Background(), g.Subject(id), g.RunnableArgs(id))
			require.NoError(t, g.Complete(id, g.Generation(id), result, err))
		}
	}
}

// TestSelectChainResolves covers Int <- Select(Str) <- (Address intrinsic).
func TestSelectChainResolves(t *testing.T) {
	lenRule := &types.Rule{
		Name: "len", SubjectType: "Address", Output: "Int",
		Selectors: []types.Selector{types.Select("Str")},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return len(args[0].(string)), nil
		},
	}
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) { return "example.com", nil },
	}
	g, _ := newGraph(t, lenRule, loadRule)

	root := g.Demand(address{Host: "example.com"}, "Int", nil)
	drive(t, g, root)

	assert.Equal(t, types.Return, g.State(root))
	assert.Equal(t, 11, g.Result(root))
}

// TestMemoizationSharesOneNode ensures two distinct demands for the same
// (subject, product, variants) converge on the same node and the producing
// rule is only ever made Runnable once.
func TestMemoizationSharesOneNode(t *testing.T) {
	calls := 0
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) {
			calls++
			return "example.com", nil
		},
	}
	g, _ := newGraph(t, loadRule)

	subject := address{Host: "example.com"}
	a := g.Demand(subject, "Str", nil)
	b := g.Demand(subject, "Str", nil)
	assert.Equal(t, a, b)

	batch := g.Walk(a, nil)
	require.Len(t, batch, 1)
	result, err := g.Rule(a).Func(context.Background(), g.Subject(a), g.RunnableArgs(a))
	require.NoError(t, g.Complete(a, g.Generation(a), result, err))
	assert.Equal(t, types.Return, g.State(a))
	assert.Equal(t, 1, calls)
}

// TestNodeKeyCollapsesSelectorShape: a plain Select(Str) and a demand
// simulating what a different selector kind's second stage would compute
// for the same (subject, product) must resolve to the same node, since the
// data model keys nodes by (subject, product, variants), never by the
// selector that triggered the demand.
func TestNodeKeyCollapsesSelectorShape(t *testing.T) {
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) { return "example.com", nil },
	}
	g, _ := newGraph(t, loadRule)

	subject := address{Host: "example.com"}
	direct := g.Demand(subject, "Str", nil)
	viaOtherSelector := g.Demand(subject, "Str", nil)

	assert.Equal(t, direct, viaOtherSelector)
}

// TestCycleSettlesAsNoop covers the invariant that a rule graph with a
// self-referential selector terminates with Noop("cycle") rather than
// looping forever or panicking.
func TestCycleSettlesAsNoop(t *testing.T) {
	cyclic := &types.Rule{
		Name: "cyclic", SubjectType: "Address", Output: "Str",
		Selectors: []types.Selector{types.Select("Str")},
		Func:      func(context.Context, any, []any) (any, error) { return "", nil },
	}
	g, _ := newGraph(t, cyclic)

	root := g.Demand(address{Host: "example.com"}, "Str", nil)
	batch := g.Walk(root, nil)

	assert.Empty(t, batch)
	assert.Equal(t, types.Noop, g.State(root))
	require.NotNil(t, g.NoopReason(root))
	assert.Equal(t, types.Cycle, g.NoopReason(root).Kind)
}

// TestNoRuleCandidateFallsThroughToNoop checks that exhausting the
// candidate list for a demand settles Noop("no rule"), never Throw.
func TestNoRuleCandidateFallsThroughToNoop(t *testing.T) {
	g, _ := newGraph(t)

	root := g.Demand(address{Host: "example.com"}, "Str", nil)
	batch := g.Walk(root, nil)

	assert.Empty(t, batch)
	assert.Equal(t, types.Noop, g.State(root))
	assert.Equal(t, types.NoRule, g.NoopReason(root).Kind)
}

// TestFailingCandidateFallsBackToNextCandidate exercises the per-node retry
// loop: the first candidate's selector Noops (missing field), so the
// second registered candidate is tried and succeeds.
func TestFailingCandidateFallsBackToNextCandidate(t *testing.T) {
	missingFieldRule := &types.Rule{
		Name: "viaProjection", SubjectType: "Address", Output: "Int",
		Selectors: []types.Selector{types.SelectProjection("Int", "Address", "NoSuchField", "Str")},
		Func:      func(context.Context, any, []any) (any, error) { return 0, nil },
	}
	directRule := &types.Rule{
		Name: "direct", SubjectType: "Address", Output: "Int",
		Func: func(context.Context, any, []any) (any, error) { return 42, nil },
	}
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) { return "example.com", nil },
	}
	g, _ := newGraph(t, missingFieldRule, directRule, loadRule)

	root := g.Demand(address{Host: "example.com"}, "Int", nil)
	drive(t, g, root)

	assert.Equal(t, types.Return, g.State(root))
	assert.Equal(t, 42, g.Result(root))
}

type assertError string

func (e assertError) Error() string { return string(e) }

// TestThrowPropagatesToParent covers a dependency's Throw surfacing as its
// parent's Throw, with the node chain recorded.
func TestThrowPropagatesToParent(t *testing.T) {
	boom := assertError("boom")
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) { return "", boom },
	}
	lenRule := &types.Rule{
		Name: "len", SubjectType: "Address", Output: "Int",
		Selectors: []types.Selector{types.Select("Str")},
		Func:      func(context.Context, any, []any) (any, error) { return 0, nil },
	}
	g, _ := newGraph(t, lenRule, loadRule)

	root := g.Demand(address{Host: "example.com"}, "Int", nil)
	drive(t, g, root)

	assert.Equal(t, types.Throw, g.State(root))
	require.NotNil(t, g.Failure(root))
	assert.ErrorIs(t, g.Failure(root), boom)
	assert.NotEmpty(t, g.Failure(root).NodeChain)
}

// TestSelectDependenciesGathersInOrderAndEmptyIsReturn covers both the
// ordering guarantee and the "empty field is Return([]), not Noop" policy.
func TestSelectDependenciesGathersInOrderAndEmptyIsReturn(t *testing.T) {
	type paths struct{ Files []string }
	type content struct{ Body string }

	listRule := &types.Rule{
		Name: "list", SubjectType: "Glob", Output: "Paths",
		Func: func(context.Context, any, []any) (any, error) {
			return paths{Files: []string{"a.txt", "b.txt"}}, nil
		},
	}
	readRule := &types.Rule{
		Name: "read", SubjectType: "", Output: "Content",
		Func: func(_ context.Context, subject any, _ []any) (any, error) {
			return content{Body: "body:" + subject.(string)}, nil
		},
	}
	gatherRule := &types.Rule{
		Name: "gather", SubjectType: "Glob", Output: "Contents",
		Selectors: []types.Selector{types.SelectDependenciesTyped("Content", "Paths", "Files", "")},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return args[0], nil
		},
	}
	g, _ := newGraph(t, listRule, readRule, gatherRule)

	root := g.Demand(globPattern("*.txt"), "Contents", nil)
	drive(t, g, root)

	require.Equal(t, types.Return, g.State(root))
	vals := g.Result(root).([]any)
	require.Len(t, vals, 2)
	assert.Equal(t, content{Body: "body:a.txt"}, vals[0])
	assert.Equal(t, content{Body: "body:b.txt"}, vals[1])

	emptyListRule := &types.Rule{
		Name: "emptyList", SubjectType: "EmptyGlob", Output: "Paths",
		Func: func(context.Context, any, []any) (any, error) { return paths{}, nil },
	}
	emptyGatherRule := &types.Rule{
		Name: "emptyGather", SubjectType: "EmptyGlob", Output: "Contents",
		Selectors: []types.Selector{types.SelectDependenciesTyped("Content", "Paths", "Files", "")},
		Func:      func(_ context.Context, _ any, args []any) (any, error) { return args[0], nil },
	}
	g2, _ := newGraph(t, emptyListRule, emptyGatherRule)
	root2 := g2.Demand(emptyGlobPattern("none"), "Contents", nil)
	drive(t, g2, root2)

	require.Equal(t, types.Return, g2.State(root2))
	assert.Equal(t, []any{}, g2.Result(root2))
}

// TestInvalidateResetsAncestorsAndBumpsGeneration covers the "reverse-edge
// ancestor removal + generation counters" invalidation design: a Complete
// call bearing a stale generation is silently discarded.
func TestInvalidateResetsAncestorsAndBumpsGeneration(t *testing.T) {
	loadRule := &types.Rule{
		Name: "load", SubjectType: "Address", Output: "Str",
		Func: func(context.Context, any, []any) (any, error) { return "example.com", nil },
	}
	lenRule := &types.Rule{
		Name: "len", SubjectType: "Address", Output: "Int",
		Selectors: []types.Selector{types.Select("Str")},
		Func: func(_ context.Context, _ any, args []any) (any, error) {
			return len(args[0].(string)), nil
		},
	}
	g, _ := newGraph(t, lenRule, loadRule)

	subject := address{Host: "example.com"}
	root := g.Demand(subject, "Int", nil)
	drive(t, g, root)
	require.Equal(t, types.Return, g.State(root))

	staleGen := g.Generation(root)

	reset := g.Invalidate(func(s any) bool {
		a, ok := s.(address)
		return ok && a.Host == "example.com"
	})
	assert.Contains(t, reset, root)
	assert.Equal(t, types.Waiting, g.State(root))
	assert.NotEqual(t, staleGen, g.Generation(root))

	err := g.Complete(root, staleGen, 999, nil)
	assert.NoError(t, err)
	assert.Equal(t, types.Waiting, g.State(root))

	drive(t, g, root)
	assert.Equal(t, types.Return, g.State(root))
	assert.Equal(t, 11, g.Result(root))
}
