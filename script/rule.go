package script

import (
	"github.com/productgraph/pgsched/types"
)

// NewExprRule expands properties into source (see ExpandProperties),
// compiles the result, and returns a *types.Rule of name, applying to
// subjectType, producing output, with selectors feeding Args the same way
// any other rule's selectors do; only Func's body differs from a
// hand-written rule. properties may be nil.
func NewExprRule(name string, subjectType types.SubjectType, output types.ProductType, selectors []types.Selector, source string, properties map[string]any) (*types.Rule, error) {
	program, err := CompileExpr(ExpandProperties(source, properties))
	if err != nil {
		return nil, err
	}
	return &types.Rule{
		Name:        name,
		SubjectType: subjectType,
		Output:      output,
		Selectors:   selectors,
		Func:        ExprFunc(program),
	}, nil
}

// NewJSRule expands properties into source, compiles the result, and
// returns a *types.Rule calling funcName on every invocation, the
// JavaScript counterpart to NewExprRule. properties may be nil.
func NewJSRule(name string, subjectType types.SubjectType, output types.ProductType, selectors []types.Selector, source, funcName string, properties map[string]any) (*types.Rule, error) {
	program, err := CompileJS(ExpandProperties(source, properties))
	if err != nil {
		return nil, err
	}
	return &types.Rule{
		Name:        name,
		SubjectType: subjectType,
		Output:      output,
		Selectors:   selectors,
		Func:        JSFunc(program, funcName),
	}, nil
}
