package script_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/pgsched/script"
)

func TestDecodeConfigReadsExpression(t *testing.T) {
	cfg, err := script.DecodeConfig(map[string]any{"expression": "subject > 5"})
	require.NoError(t, err)
	assert.Equal(t, "subject > 5", cfg.Expression)
}

func TestExprRuleEvaluatesAgainstSubjectAndArgs(t *testing.T) {
	rule, err := script.NewExprRule("overTen", "int", "bool", nil, "subject > 10", nil)
	require.NoError(t, err)

	out, err := rule.Func(context.Background(), 42, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = rule.Func(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, false, out)
}

func TestExprRuleSeesArgs(t *testing.T) {
	rule, err := script.NewExprRule("sumArgs", "", "int", nil, "args[0] + args[1]", nil)
	require.NoError(t, err)

	out, err := rule.Func(context.Background(), nil, []any{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}

func TestExprRuleExpandsGlobalProperties(t *testing.T) {
	rule, err := script.NewExprRule("overThreshold", "int", "bool", nil,
		"subject > ${threshold}", map[string]any{"threshold": 10})
	require.NoError(t, err)

	out, err := rule.Func(context.Background(), 42, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestExpandPropertiesLeavesUnknownPlaceholdersUntouched(t *testing.T) {
	out := script.ExpandProperties("subject > ${unset}", map[string]any{"other": 1})
	assert.Equal(t, "subject > ${unset}", out)
}

func TestJSRuleCallsNamedFunction(t *testing.T) {
	rule, err := script.NewJSRule("double", "int", "int", nil,
		"function double(subject) { return subject * 2; }", "double", nil)
	require.NoError(t, err)

	out, err := rule.Func(context.Background(), int64(21), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, out)
}

func TestJSRuleMissingFunctionErrors(t *testing.T) {
	rule, err := script.NewJSRule("missing", "int", "int", nil, "var x = 1;", "notThere", nil)
	require.NoError(t, err)

	_, err = rule.Func(context.Background(), 1, nil)
	assert.Error(t, err)
}
