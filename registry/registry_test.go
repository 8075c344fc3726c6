package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

func noopFunc(context.Context, any, []any) (any, error) { return nil, nil }

func TestIntrinsicsPrecedeUserRules(t *testing.T) {
	r := registry.New()

	user := &types.Rule{Name: "user", Output: "Str", Func: noopFunc}
	intrinsic := &types.Rule{Name: "intrinsic", Output: "Str", Func: noopFunc, Intrinsic: true}

	require.NoError(t, r.Register(user))
	require.NoError(t, r.Register(intrinsic))

	got := r.Candidates("", "Str")
	require.Len(t, got, 2)
	assert.Same(t, intrinsic, got[0], "intrinsic must be tried before user rule regardless of registration order")
	assert.Same(t, user, got[1])
}

func TestRegistrationOrderBreaksTies(t *testing.T) {
	r := registry.New()
	first := &types.Rule{Name: "first", Output: "Int", Func: noopFunc}
	second := &types.Rule{Name: "second", Output: "Int", Func: noopFunc}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	got := r.Candidates("", "Int")
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
}

func TestSubjectSpecificPrecedesWildcard(t *testing.T) {
	r := registry.New()
	wildcard := &types.Rule{Name: "any-subject", Output: "Str", Func: noopFunc}
	specific := &types.Rule{Name: "addr-only", SubjectType: "Address", Output: "Str", Func: noopFunc}
	require.NoError(t, r.Register(wildcard))
	require.NoError(t, r.Register(specific))

	got := r.Candidates("Address", "Str")
	require.Len(t, got, 2)
	assert.Same(t, specific, got[0])
	assert.Same(t, wildcard, got[1])
}

func TestUnregisterRemovesRule(t *testing.T) {
	r := registry.New()
	rule := &types.Rule{Name: "only", Output: "Int", Func: noopFunc}
	require.NoError(t, r.Register(rule))
	r.Unregister(rule)
	assert.Empty(t, r.Candidates("", "Int"))
}

func TestRegisterRejectsIncompleteRule(t *testing.T) {
	r := registry.New()
	assert.Error(t, r.Register(&types.Rule{Name: "no-output", Func: noopFunc}))
	assert.Error(t, r.Register(&types.Rule{Name: "no-func", Output: "X"}))
	assert.Error(t, r.Register(nil))
}
